package metrics

import (
	"testing"
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/period"

	"github.com/shopspring/decimal"
)

func day(m time.Month, d int) time.Time { return time.Date(2021, m, d, 10, 0, 0, 0, time.UTC) }

func TestFormulas(t *testing.T) {
	cases := []struct {
		name string
		got  models.NullFloat
		want float64
	}{
		{"aov", AOV(decimal.NewFromFloat(64.5), 4), 16.13},
		{"revenue per unit", RevenuePerUnit(decimal.NewFromInt(10), 4), 2.5},
		{"rate", Rate(1, 3), 33.33},
		{"retention", RetentionRate(2, 5), 40},
		{"growth", SalesGrowthRate(decimal.NewFromInt(200), decimal.NewFromInt(250)), 25},
		{"decline", SalesGrowthRate(decimal.NewFromInt(60), decimal.NewFromFloat(4.5)), -92.5},
		{"velocity", SalesVelocity(7, 36, 30), 5.83},
	}
	for _, c := range cases {
		if !c.got.Valid || c.got.Float64 != c.want {
			t.Fatalf("%s = %+v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestFormulas_ZeroDenominatorIsUndefined(t *testing.T) {
	for name, v := range map[string]models.NullFloat{
		"aov":      AOV(decimal.NewFromInt(10), 0),
		"per unit": RevenuePerUnit(decimal.NewFromInt(10), 0),
		"rate":     Rate(1, 0),
		"growth":   SalesGrowthRate(decimal.Zero, decimal.NewFromInt(5)),
		"velocity": SalesVelocity(3, 0, 30),
	} {
		if v.Valid {
			t.Fatalf("%s should be undefined, got %v", name, v.Float64)
		}
	}
}

func TestSummary(t *testing.T) {
	orders := []models.Order{
		{OrderID: "1", CustomerID: "X", OrderDate: day(1, 1), Items: 1, Revenue: 10},
		{OrderID: "2", CustomerID: "X", OrderDate: day(1, 11), Items: 2, Revenue: 20},
		{OrderID: "3", CustomerID: "X", OrderDate: day(1, 26), Items: 3, Revenue: 30},
		{OrderID: "4", CustomerID: "Y", OrderDate: day(2, 5), Items: 1, Revenue: 4.5},
	}
	customers := []models.Customer{{CustomerID: "X", Orders: 3}, {CustomerID: "Y", Orders: 1}}

	got := map[string]models.NullFloat{}
	for _, k := range Summary(orders, customers, period.Month) {
		got[k.Name] = k.Value
	}
	want := map[string]float64{
		KPIRevenue:            64.5,
		KPIOrders:             4,
		KPICustomers:          2,
		KPIUnits:              7,
		KPIAOV:                16.13,
		KPIRevenuePerUnit:     9.21,
		KPIRepeatCustomerRate: 50,
		KPIReplacementRate:    0,
		KPISalesGrowthRate:    -92.5,
		KPISalesVelocity:      5.83,
	}
	for name, w := range want {
		if v := got[name]; !v.Valid || v.Float64 != w {
			t.Fatalf("%s = %+v, want %v", name, v, w)
		}
	}
}

func TestSummary_SinglePeriodHasNoGrowth(t *testing.T) {
	orders := []models.Order{{OrderID: "1", CustomerID: "X", OrderDate: day(3, 1), Items: 1, Revenue: 10}}
	for _, k := range Summary(orders, nil, period.Month) {
		if k.Name == KPISalesGrowthRate && k.Value.Valid {
			t.Fatalf("growth needs a previous period, got %v", k.Value.Float64)
		}
		if k.Name == KPIRepeatCustomerRate && k.Value.Valid {
			t.Fatal("repeat rate without customers should be undefined")
		}
	}
}
