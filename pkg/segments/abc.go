package segments

import (
	"sort"
	"time"

	"ecomtools/pkg/models"

	"github.com/shopspring/decimal"
)

// ABCInput is one entity to classify: its value over the window and days since its last purchase.
type ABCInput struct {
	ID      string
	Value   float64
	Recency int
}

// ABC ranks purchased entities by value, highest first, and classifies them by cumulative
// share of total value. Entities with Recency beyond the policy window are lapsed: they get
// the lapsed class, a zero share and a rank after every purchased entity. Purchased rows
// come first in rank order, lapsed rows follow in input order.
func ABC(entities []ABCInput, policy models.ABCPolicy) []models.ABCSegment {
	remainder := policy.Remainder
	if remainder == "" {
		remainder = "C"
	}
	lapsedClass := policy.Lapsed
	if lapsedClass == "" {
		lapsedClass = "D"
	}

	var purchased, lapsed []ABCInput
	total := decimal.Zero
	for _, e := range entities {
		if policy.Months > 0 && e.Recency > policy.Months*30 {
			lapsed = append(lapsed, e)
			continue
		}
		purchased = append(purchased, e)
		total = total.Add(decimal.NewFromFloat(e.Value))
	}
	sort.SliceStable(purchased, func(i, j int) bool { return purchased[i].Value > purchased[j].Value })

	out := make([]models.ABCSegment, 0, len(entities))
	cum := decimal.Zero
	for i, e := range purchased {
		cum = cum.Add(decimal.NewFromFloat(e.Value))
		pct := decimal.NewFromInt(100)
		if total.IsPositive() {
			pct = cum.Div(total).Mul(decimal.NewFromInt(100))
		}
		share := pct.Round(4).InexactFloat64()
		class := remainder
		for _, th := range policy.Thresholds {
			if pct.LessThanOrEqual(decimal.NewFromFloat(th.MaxShare)) {
				class = th.Class
				break
			}
		}
		if i == 0 && len(policy.Thresholds) > 0 {
			class = policy.Thresholds[0].Class
		}
		out = append(out, models.ABCSegment{ID: e.ID, Value: e.Value, Share: share, Class: class, Rank: i + 1})
	}
	for _, e := range lapsed {
		out = append(out, models.ABCSegment{ID: e.ID, Value: e.Value, Class: lapsedClass, Rank: len(purchased) + 1})
	}
	return out
}

// CustomerABC classifies customers by revenue over the trailing policy window ending at ref.
func CustomerABC(items []models.TransactionItem, ref time.Time, policy models.ABCPolicy) []models.ABCSegment {
	return ABC(windowValues(items, ref, policy.Months, func(it models.TransactionItem) string { return it.CustomerID }), policy)
}

// ProductABC classifies SKUs by revenue over the trailing policy window ending at ref.
func ProductABC(items []models.TransactionItem, ref time.Time, policy models.ABCPolicy) []models.ABCSegment {
	return ABC(windowValues(items, ref, policy.Months, func(it models.TransactionItem) string { return it.SKU }), policy)
}

// windowValues sums line revenue per key within the last months*30 days and records the
// recency of each key's latest line. Keys are returned in first-seen order.
func windowValues(items []models.TransactionItem, ref time.Time, months int, key func(models.TransactionItem) string) []ABCInput {
	ref = models.ResolveReference(ref, items)
	type acc struct {
		value decimal.Decimal
		last  time.Time
	}
	byKey := make(map[string]*acc)
	var order []string
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		a, ok := byKey[k]
		if !ok {
			a = &acc{last: it.OrderDate}
			byKey[k] = a
			order = append(order, k)
		}
		if it.OrderDate.After(a.last) {
			a.last = it.OrderDate
		}
		if months > 0 && models.DaysBetween(it.OrderDate, ref) > months*30 {
			continue
		}
		a.value = a.value.Add(decimal.NewFromFloat(it.LinePrice))
	}
	out := make([]ABCInput, 0, len(order))
	for _, k := range order {
		a := byKey[k]
		out = append(out, ABCInput{ID: k, Value: a.value.Round(2).InexactFloat64(), Recency: models.DaysBetween(a.last, ref)})
	}
	return out
}
