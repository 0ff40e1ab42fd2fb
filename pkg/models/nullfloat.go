package models

import (
	"database/sql"
	"encoding/json"
	"strconv"
)

// NullFloat is a float64 that may be undefined, e.g. an average over zero orders.
type NullFloat struct {
	sql.NullFloat64
}

func Float(v float64) NullFloat {
	return NullFloat{sql.NullFloat64{Float64: v, Valid: true}}
}

// Ratio returns num/den, or an invalid value when den is zero.
func Ratio(num, den float64) NullFloat {
	if den == 0 {
		return NullFloat{}
	}
	return Float(num / den)
}

// Or returns the value, or fallback when undefined.
func (n NullFloat) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Float64
}

func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}
