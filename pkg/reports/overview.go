// Package reports produces summary tables over transaction items.
package reports

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/period"

	"github.com/shopspring/decimal"
)

type overviewAcc struct {
	ordinal   int
	row       models.PeriodOverview
	customers map[string]struct{}
	orders    map[string]struct{}
	revenue   decimal.Decimal
}

// PeriodOverview groups customers by the period of their first order and reports their
// customers, orders, units and revenue with per-order and per-customer averages.
// Anonymous lines are ignored. Newest period first.
func PeriodOverview(items []models.TransactionItem, p period.Period) ([]models.PeriodOverview, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unsupported period %q", models.ErrInvalidConfig, string(p))
	}
	if len(items) == 0 {
		return nil, models.ErrEmptyInput
	}

	first := make(map[string]time.Time)
	for _, it := range items {
		if it.CustomerID == "" {
			continue
		}
		if d, ok := first[it.CustomerID]; !ok || it.OrderDate.Before(d) {
			first[it.CustomerID] = it.OrderDate
		}
	}

	byOrdinal := make(map[int]*overviewAcc)
	for _, it := range items {
		acq, ok := first[it.CustomerID]
		if !ok {
			continue
		}
		o := p.Ordinal(acq)
		acc, ok := byOrdinal[o]
		if !ok {
			acc = &overviewAcc{
				ordinal:   o,
				row:       models.PeriodOverview{Period: p.Label(acq)},
				customers: make(map[string]struct{}),
				orders:    make(map[string]struct{}),
			}
			byOrdinal[o] = acc
		}
		acc.customers[it.CustomerID] = struct{}{}
		acc.orders[it.OrderID] = struct{}{}
		acc.row.Units += it.Quantity
		acc.revenue = acc.revenue.Add(decimal.NewFromFloat(it.LinePrice))
	}

	accs := make([]*overviewAcc, 0, len(byOrdinal))
	for _, acc := range byOrdinal {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].ordinal > accs[j].ordinal })

	out := make([]models.PeriodOverview, 0, len(accs))
	for _, acc := range accs {
		r := acc.row
		r.Customers = len(acc.customers)
		r.Orders = len(acc.orders)
		r.Revenue = acc.revenue.Round(2).InexactFloat64()
		r.AvgOrderValue = round2(models.Ratio(r.Revenue, float64(r.Orders)))
		r.AvgUnitsPerOrder = round2(models.Ratio(float64(r.Units), float64(r.Orders)))
		r.AvgOrdersPerCustomer = round2(models.Ratio(float64(r.Orders), float64(r.Customers)))
		r.AvgRevenuePerCustomer = round2(models.Ratio(r.Revenue, float64(r.Customers)))
		out = append(out, r)
	}
	return out, nil
}

func round2(v models.NullFloat) models.NullFloat {
	if !v.Valid {
		return v
	}
	return models.Float(math.Round(v.Float64*100) / 100)
}
