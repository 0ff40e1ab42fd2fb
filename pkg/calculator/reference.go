package calculator

import (
	"fmt"
	"strings"
	"time"

	"ecomtools/pkg/models"
)

// ParseReference reads the analysis reference date as YYYY-MM-DD, MMYYYY (first day
// of that month) or "now". An empty string returns the zero time: use the latest order date.
func ParseReference(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "now") {
		return time.Now().UTC(), nil
	}
	switch len(s) {
	case 0:
		return time.Time{}, nil
	case 6:
		t, err := parseMonth(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: reference %q: %v", models.ErrInvalidConfig, s, err)
		}
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference %q: want YYYY-MM-DD or MMYYYY", models.ErrInvalidConfig, s)
	}
	return t, nil
}

// parseMonth("MMYYYY") -> first day of the month, UTC
func parseMonth(mmyyyy string) (time.Time, error) {
	if len(mmyyyy) != 6 {
		return time.Time{}, fmt.Errorf("expected MMYYYY (e.g. 012025)")
	}
	for _, c := range mmyyyy {
		if c < '0' || c > '9' {
			return time.Time{}, fmt.Errorf("expected digits only")
		}
	}
	month := int(mmyyyy[0]-'0')*10 + int(mmyyyy[1]-'0')
	year := int(mmyyyy[2]-'0')*1000 + int(mmyyyy[3]-'0')*100 + int(mmyyyy[4]-'0')*10 + int(mmyyyy[5]-'0')
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month")
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}
