// Package customers builds one row per customer from order lines.
package customers

import (
	"fmt"
	"sort"
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/period"

	"github.com/shopspring/decimal"
)

type Options struct {
	Reference    time.Time     // zero = latest order date in the input
	CohortPeriod period.Period // granularity of Customer.Cohort, default quarter
}

type customerAcc struct {
	c       models.Customer
	orders  map[string]struct{}
	skus    map[string]struct{}
	revenue decimal.Decimal
}

// Aggregate groups items by customer. Lines without a customer id are skipped.
// Rows come back sorted by customer id.
func Aggregate(items []models.TransactionItem, opts Options) ([]models.Customer, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyInput
	}
	ref := models.ResolveReference(opts.Reference, items)
	p := opts.CohortPeriod
	if p == "" {
		p = period.Quarter
	}

	byID := make(map[string]*customerAcc)
	for _, it := range items {
		if it.CustomerID == "" {
			continue
		}
		acc, ok := byID[it.CustomerID]
		if !ok {
			acc = &customerAcc{
				c: models.Customer{
					CustomerID:     it.CustomerID,
					FirstOrderDate: it.OrderDate,
					LastOrderDate:  it.OrderDate,
				},
				orders: make(map[string]struct{}),
				skus:   make(map[string]struct{}),
			}
			byID[it.CustomerID] = acc
		}
		if it.OrderDate.Before(acc.c.FirstOrderDate) {
			acc.c.FirstOrderDate = it.OrderDate
		}
		if it.OrderDate.After(acc.c.LastOrderDate) {
			acc.c.LastOrderDate = it.OrderDate
		}
		acc.orders[it.OrderID] = struct{}{}
		acc.skus[it.SKU] = struct{}{}
		acc.c.Items += it.Quantity
		acc.revenue = acc.revenue.Add(decimal.NewFromFloat(it.LinePrice))
	}
	if len(byID) == 0 {
		return nil, fmt.Errorf("no identified customers: %w", models.ErrEmptyInput)
	}

	out := make([]models.Customer, 0, len(byID))
	for _, acc := range byID {
		c := acc.c
		c.Orders = len(acc.orders)
		c.SKUs = len(acc.skus)
		c.Revenue = acc.revenue.Round(2).InexactFloat64()
		c.AvgItems = models.Ratio(float64(c.Items), float64(c.Orders))
		if c.Orders > 0 {
			c.AvgOrderValue = models.Float(acc.revenue.Div(decimal.NewFromInt(int64(c.Orders))).Round(2).InexactFloat64())
		}
		c.Tenure = models.DaysBetween(c.FirstOrderDate, ref)
		c.Recency = models.DaysBetween(c.LastOrderDate, ref)
		c.Cohort = p.Code(c.FirstOrderDate)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}
