// Package normalize maps arbitrary source columns onto canonical transaction items.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecomtools/pkg/models"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. The M/D/YYYY forms match the Online Retail export.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"1/2/2006",
}

type columns struct {
	date, orderID, customerID, sku, quantity, unitPrice int
	description, country                                int
}

// Normalize converts raw rows into transaction items and computes each line price.
// Required columns missing from the header, and cells that do not parse, are reported
// as *models.SchemaError. Negative quantities and prices are kept as returns/adjustments.
func Normalize(raw models.RawTable, m models.ColumnMapping) ([]models.TransactionItem, error) {
	cols, err := resolve(raw.Header, m)
	if err != nil {
		return nil, err
	}

	items := make([]models.TransactionItem, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		n := i + 1
		if isBlank(row) {
			continue
		}
		date, err := ParseDate(cell(row, cols.date))
		if err != nil {
			return nil, &models.SchemaError{Column: m.Date, Row: n, Reason: err.Error()}
		}
		qty, err := parseQuantity(cell(row, cols.quantity))
		if err != nil {
			return nil, &models.SchemaError{Column: m.Quantity, Row: n, Reason: err.Error()}
		}
		price, err := decimal.NewFromString(cell(row, cols.unitPrice))
		if err != nil {
			return nil, &models.SchemaError{Column: m.UnitPrice, Row: n, Reason: "invalid decimal " + strconv.Quote(cell(row, cols.unitPrice))}
		}
		orderID := cell(row, cols.orderID)
		if orderID == "" {
			return nil, &models.SchemaError{Column: m.OrderID, Row: n, Reason: "empty order id"}
		}

		items = append(items, models.TransactionItem{
			OrderID:     orderID,
			SKU:         cell(row, cols.sku),
			Description: cell(row, cols.description),
			Quantity:    qty,
			OrderDate:   date,
			UnitPrice:   price.InexactFloat64(),
			CustomerID:  normalizeID(cell(row, cols.customerID)),
			Country:     cell(row, cols.country),
			LinePrice:   LinePrice(qty, price),
		})
	}
	return items, nil
}

// LinePrice returns quantity × unit price rounded to cents.
func LinePrice(qty int, unitPrice decimal.Decimal) float64 {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}

// ParseDate accepts the layouts commonly found in order exports. Values without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func resolve(header []string, m models.ColumnMapping) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	required := func(name string) (int, error) {
		if strings.TrimSpace(name) == "" {
			return -1, &models.SchemaError{Column: name, Reason: "no source column configured"}
		}
		i, ok := index[name]
		if !ok {
			return -1, &models.SchemaError{Column: name, Reason: "required column missing"}
		}
		return i, nil
	}
	optional := func(name string) int {
		if i, ok := index[name]; ok && name != "" {
			return i
		}
		return -1
	}

	var c columns
	var err error
	if c.date, err = required(m.Date); err != nil {
		return c, err
	}
	if c.orderID, err = required(m.OrderID); err != nil {
		return c, err
	}
	if c.customerID, err = required(m.CustomerID); err != nil {
		return c, err
	}
	if c.sku, err = required(m.SKU); err != nil {
		return c, err
	}
	if c.quantity, err = required(m.Quantity); err != nil {
		return c, err
	}
	if c.unitPrice, err = required(m.UnitPrice); err != nil {
		return c, err
	}
	c.description = optional(m.Description)
	c.country = optional(m.Country)
	return c, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseQuantity accepts integers and integral floats ("3.0") as some exports write them.
func parseQuantity(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(d.IntPart()), nil
}

// normalizeID strips the ".0" suffix float-typed id columns pick up ("17850.0").
func normalizeID(s string) string {
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(s, ".0")); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}
