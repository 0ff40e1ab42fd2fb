// Package products builds one row per SKU with repurchase and bulk purchase behaviour.
package products

import (
	"math"
	"sort"
	"time"

	"ecomtools/pkg/models"

	"github.com/shopspring/decimal"
)

type Options struct {
	Reference time.Time // zero = latest order date in the input
	Days      int       // trailing window; 0 keeps all history
}

var (
	RepurchaseLabels = []string{"Very low repurchase", "Low repurchase", "Moderate repurchase", "High repurchase", "Very high repurchase"}
	BulkLabels       = []string{"Very low bulk", "Low bulk", "Moderate bulk", "High bulk", "Very high bulk"}
)

type productAcc struct {
	p          models.Product
	revenue    decimal.Decimal
	unitPrices float64
	lines      int
	// per customer: distinct orders containing the SKU
	customers map[string]map[string]struct{}
	// per order: summed quantity of the SKU
	orders map[string]int
}

// Aggregate groups items by SKU. With Days set, only items on or after
// Reference − Days are considered. Rows come back sorted by SKU.
func Aggregate(items []models.TransactionItem, opts Options) ([]models.Product, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyInput
	}
	ref := models.ResolveReference(opts.Reference, items)
	var since time.Time
	if opts.Days > 0 {
		since = ref.AddDate(0, 0, -opts.Days)
	}

	bySKU := make(map[string]*productAcc)
	for _, it := range items {
		if !since.IsZero() && it.OrderDate.Before(since) {
			continue
		}
		acc, ok := bySKU[it.SKU]
		if !ok {
			acc = &productAcc{
				p: models.Product{
					SKU:            it.SKU,
					Description:    it.Description,
					FirstOrderDate: it.OrderDate,
					LastOrderDate:  it.OrderDate,
				},
				customers: make(map[string]map[string]struct{}),
				orders:    make(map[string]int),
			}
			bySKU[it.SKU] = acc
		}
		if acc.p.Description == "" {
			acc.p.Description = it.Description
		}
		if it.OrderDate.Before(acc.p.FirstOrderDate) {
			acc.p.FirstOrderDate = it.OrderDate
		}
		if it.OrderDate.After(acc.p.LastOrderDate) {
			acc.p.LastOrderDate = it.OrderDate
		}
		acc.p.Items += it.Quantity
		acc.revenue = acc.revenue.Add(decimal.NewFromFloat(it.LinePrice))
		acc.unitPrices += it.UnitPrice
		acc.lines++
		acc.orders[it.OrderID] += it.Quantity
		if it.CustomerID != "" {
			if acc.customers[it.CustomerID] == nil {
				acc.customers[it.CustomerID] = make(map[string]struct{})
			}
			acc.customers[it.CustomerID][it.OrderID] = struct{}{}
		}
	}
	if len(bySKU) == 0 {
		return nil, models.ErrEmptyInput
	}

	out := make([]models.Product, 0, len(bySKU))
	for _, acc := range bySKU {
		p := acc.p
		p.Customers = len(acc.customers)
		p.Orders = len(acc.orders)
		p.Revenue = acc.revenue.Round(2).InexactFloat64()
		p.AvgUnitPrice = round2(acc.unitPrices / float64(acc.lines))
		p.AvgQuantity = round2(float64(p.Items) / float64(acc.lines))
		p.AvgRevenue = acc.revenue.Div(decimal.NewFromInt(int64(acc.lines))).Round(2).InexactFloat64()
		if p.Customers > 0 {
			p.AvgOrders = round2(float64(p.Orders) / float64(p.Customers))
		}
		p.Tenure = models.DaysBetween(p.FirstOrderDate, ref)
		p.Recency = models.DaysBetween(p.LastOrderDate, ref)

		for _, orders := range acc.customers {
			if len(orders) > 1 {
				p.Repurchasers++
			}
		}
		for _, qty := range acc.orders {
			if qty > 1 {
				p.BulkOrders++
			}
		}
		if p.Customers > 0 {
			p.RepurchaseRate = float64(p.Repurchasers) / float64(p.Customers)
		}
		p.BulkPurchaseRate = float64(p.BulkOrders) / float64(p.Orders)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })

	repurchase := make([]float64, len(out))
	bulk := make([]float64, len(out))
	for i, p := range out {
		repurchase[i] = p.RepurchaseRate
		bulk[i] = p.BulkPurchaseRate
	}
	for i, idx := range EqualWidthBins(repurchase, len(RepurchaseLabels)) {
		out[i].RepurchaseLabel = RepurchaseLabels[idx]
	}
	for i, idx := range EqualWidthBins(bulk, len(BulkLabels)) {
		out[i].BulkLabel = BulkLabels[idx]
	}
	return out, nil
}

// EqualWidthBins splits [min, max] of values into k equal-width intervals and returns the
// 0-based interval of each value. Intervals are closed on the right; the minimum falls in
// the first one. A population with no spread lands in the middle interval.
func EqualWidthBins(values []float64, k int) []int {
	out := make([]int, len(values))
	if len(values) == 0 || k <= 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(k)
	for i, v := range values {
		if width == 0 {
			out[i] = k / 2
			continue
		}
		idx := int(math.Ceil((v-lo)/width)) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > k-1 {
			idx = k - 1
		}
		out[i] = idx
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
