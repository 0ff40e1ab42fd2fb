// Package transactions rolls order lines up into one row per order.
package transactions

import (
	"sort"

	"ecomtools/pkg/models"

	"github.com/shopspring/decimal"
)

type orderAcc struct {
	order   models.Order
	skus    map[string]struct{}
	revenue decimal.Decimal
	seq     int
}

// Aggregate groups items by order id. The order date is the earliest line date and the
// customer is taken from the first line seen. Orders with net revenue ≤ 0 are flagged as
// replacements. OrderNumber counts each customer's orders by date, starting at 1.
// The result is sorted by order date, ties keeping first appearance.
func Aggregate(items []models.TransactionItem) ([]models.Order, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyInput
	}

	byID := make(map[string]*orderAcc)
	accs := make([]*orderAcc, 0)
	for _, it := range items {
		acc, ok := byID[it.OrderID]
		if !ok {
			acc = &orderAcc{
				order: models.Order{OrderID: it.OrderID, OrderDate: it.OrderDate, CustomerID: it.CustomerID},
				skus:  make(map[string]struct{}),
				seq:   len(accs),
			}
			byID[it.OrderID] = acc
			accs = append(accs, acc)
		}
		if it.OrderDate.Before(acc.order.OrderDate) {
			acc.order.OrderDate = it.OrderDate
		}
		acc.skus[it.SKU] = struct{}{}
		acc.order.Items += it.Quantity
		acc.revenue = acc.revenue.Add(decimal.NewFromFloat(it.LinePrice))
	}

	sort.SliceStable(accs, func(i, j int) bool {
		return accs[i].order.OrderDate.Before(accs[j].order.OrderDate)
	})

	perCustomer := make(map[string]int)
	orders := make([]models.Order, 0, len(accs))
	for _, acc := range accs {
		o := acc.order
		o.SKUs = len(acc.skus)
		o.Revenue = acc.revenue.Round(2).InexactFloat64()
		o.Replacement = !acc.revenue.IsPositive()
		perCustomer[o.CustomerID]++
		o.OrderNumber = perCustomer[o.CustomerID]
		orders = append(orders, o)
	}
	return orders, nil
}
