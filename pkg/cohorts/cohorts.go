// Package cohorts groups customers by the period of their first order and follows their
// activity over the periods that follow.
package cohorts

import (
	"fmt"
	"sort"
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/period"

	"github.com/shopspring/decimal"
)

type MatrixOptions struct {
	Period     period.Period
	Measure    string // models.MeasureCustomers or models.MeasureRevenue
	Percentage bool   // divide each row by its offset-0 cell
}

// acquisitions returns each customer's first order date. Anonymous lines are ignored.
func acquisitions(items []models.TransactionItem) map[string]time.Time {
	first := make(map[string]time.Time)
	for _, it := range items {
		if it.CustomerID == "" {
			continue
		}
		if d, ok := first[it.CustomerID]; !ok || it.OrderDate.Before(d) {
			first[it.CustomerID] = it.OrderDate
		}
	}
	return first
}

func checkPeriod(p period.Period) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unsupported period %q", models.ErrInvalidConfig, string(p))
	}
	return nil
}

// Assign returns one row per distinct customer order with its acquisition and order
// cohort labels and the number of periods between them. Rows are sorted by customer
// then order date.
func Assign(items []models.TransactionItem, p period.Period) ([]models.CohortAssignment, error) {
	if err := checkPeriod(p); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, models.ErrEmptyInput
	}
	first := acquisitions(items)

	type key struct{ customer, order string }
	dates := make(map[key]time.Time)
	for _, it := range items {
		if it.CustomerID == "" {
			continue
		}
		k := key{it.CustomerID, it.OrderID}
		if d, ok := dates[k]; !ok || it.OrderDate.Before(d) {
			dates[k] = it.OrderDate
		}
	}

	out := make([]models.CohortAssignment, 0, len(dates))
	for k, d := range dates {
		acq := first[k.customer]
		out = append(out, models.CohortAssignment{
			CustomerID:        k.customer,
			OrderID:           k.order,
			OrderDate:         d,
			AcquisitionCohort: p.Label(acq),
			OrderCohort:       p.Label(d),
			Periods:           p.Between(acq, d),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}

type cell struct {
	acqOrdinal, orderOrdinal int
	row                      models.RetentionRow
	customers                map[string]struct{}
	revenue                  decimal.Decimal
}

// Retention counts distinct active customers and revenue per
// (acquisition cohort, order cohort), sorted chronologically.
func Retention(items []models.TransactionItem, p period.Period) ([]models.RetentionRow, error) {
	if err := checkPeriod(p); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, models.ErrEmptyInput
	}
	first := acquisitions(items)

	type key struct{ acq, ord int }
	cells := make(map[key]*cell)
	for _, it := range items {
		if it.CustomerID == "" {
			continue
		}
		acq := first[it.CustomerID]
		k := key{p.Ordinal(acq), p.Ordinal(it.OrderDate)}
		c, ok := cells[k]
		if !ok {
			c = &cell{
				acqOrdinal:   k.acq,
				orderOrdinal: k.ord,
				row: models.RetentionRow{
					AcquisitionCohort: p.Label(acq),
					OrderCohort:       p.Label(it.OrderDate),
					Periods:           k.ord - k.acq,
				},
				customers: make(map[string]struct{}),
			}
			cells[k] = c
		}
		c.customers[it.CustomerID] = struct{}{}
		c.revenue = c.revenue.Add(decimal.NewFromFloat(it.LinePrice))
	}

	sorted := make([]*cell, 0, len(cells))
	for _, c := range cells {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].acqOrdinal != sorted[j].acqOrdinal {
			return sorted[i].acqOrdinal < sorted[j].acqOrdinal
		}
		return sorted[i].orderOrdinal < sorted[j].orderOrdinal
	})
	out := make([]models.RetentionRow, 0, len(sorted))
	for _, c := range sorted {
		r := c.row
		r.Customers = len(c.customers)
		r.Revenue = c.revenue.Round(2).InexactFloat64()
		out = append(out, r)
	}
	return out, nil
}

// Matrix pivots retention into one row per acquisition cohort and one column per offset.
// Offsets with no activity stay absent.
func Matrix(items []models.TransactionItem, opts MatrixOptions) (models.CohortMatrix, error) {
	measure := opts.Measure
	if measure == "" {
		measure = models.MeasureCustomers
	}
	if measure != models.MeasureCustomers && measure != models.MeasureRevenue {
		return models.CohortMatrix{}, fmt.Errorf("%w: unknown measure %q", models.ErrInvalidConfig, measure)
	}
	rows, err := Retention(items, opts.Period)
	if err != nil {
		return models.CohortMatrix{}, err
	}
	return Pivot(rows, opts.Period, measure, opts.Percentage), nil
}

// Pivot turns chronologically sorted retention rows into a matrix.
func Pivot(rows []models.RetentionRow, p period.Period, measure string, percentage bool) models.CohortMatrix {
	m := models.CohortMatrix{Period: string(p), Measure: measure, Percentage: percentage}
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.AcquisitionCohort]
		if !ok {
			i = len(m.Cohorts)
			index[r.AcquisitionCohort] = i
			m.Cohorts = append(m.Cohorts, r.AcquisitionCohort)
			m.Cells = append(m.Cells, nil)
		}
		for len(m.Cells[i]) <= r.Periods {
			m.Cells[i] = append(m.Cells[i], models.NullFloat{})
		}
		v := float64(r.Customers)
		if measure == models.MeasureRevenue {
			v = r.Revenue
		}
		m.Cells[i][r.Periods] = models.Float(v)
	}
	if !percentage {
		return m
	}
	for _, row := range m.Cells {
		base := row[0]
		for j, c := range row {
			if !c.Valid {
				continue
			}
			if !base.Valid {
				row[j] = models.NullFloat{}
				continue
			}
			row[j] = models.Ratio(c.Float64, base.Float64)
		}
	}
	return m
}
