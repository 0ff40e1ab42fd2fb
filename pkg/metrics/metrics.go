// Package metrics holds the scalar retail formulas and the headline KPI table built from them.
package metrics

import (
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/period"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AOV is revenue per order. Undefined without orders.
func AOV(revenue decimal.Decimal, orders int) models.NullFloat {
	if orders == 0 {
		return models.NullFloat{}
	}
	return models.Float(revenue.Div(decimal.NewFromInt(int64(orders))).Round(2).InexactFloat64())
}

// RevenuePerUnit is revenue per unit sold. Undefined without units.
func RevenuePerUnit(revenue decimal.Decimal, units int) models.NullFloat {
	if units == 0 {
		return models.NullFloat{}
	}
	return models.Float(revenue.Div(decimal.NewFromInt(int64(units))).Round(2).InexactFloat64())
}

// Rate returns part as a percentage of whole, rounded to two places.
func Rate(part, whole int) models.NullFloat {
	if whole == 0 {
		return models.NullFloat{}
	}
	return models.Float(decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))).Round(2).InexactFloat64())
}

// RetentionRate is the share of customers acquired in one period who ordered again in another.
func RetentionRate(repurchasing, acquired int) models.NullFloat { return Rate(repurchasing, acquired) }

// SalesGrowthRate is the percentage change from previous to current. Undefined when previous is zero.
func SalesGrowthRate(previous, current decimal.Decimal) models.NullFloat {
	if previous.IsZero() {
		return models.NullFloat{}
	}
	return models.Float(current.Sub(previous).Div(previous).Mul(hundred).Round(2).InexactFloat64())
}

// SalesVelocity is units sold per velocityDays, given the days the product was on sale.
func SalesVelocity(units, daysOnSale, velocityDays int) models.NullFloat {
	if daysOnSale <= 0 {
		return models.NullFloat{}
	}
	v := decimal.NewFromInt(int64(units)).Div(decimal.NewFromInt(int64(daysOnSale))).Mul(decimal.NewFromInt(int64(velocityDays)))
	return models.Float(v.Round(2).InexactFloat64())
}

// KPI names, in the order Summary returns them.
const (
	KPIRevenue            = "revenue"
	KPIOrders             = "orders"
	KPICustomers          = "customers"
	KPIUnits              = "units"
	KPIAOV                = "avg_order_value"
	KPIRevenuePerUnit     = "revenue_per_unit"
	KPIRepeatCustomerRate = "repeat_customer_rate"
	KPIReplacementRate    = "replacement_rate"
	KPISalesGrowthRate    = "sales_growth_rate"
	KPISalesVelocity      = "sales_velocity_30d"
)

// Summary computes the headline figures over orders and customers. Sales growth compares
// the last period p with the one before it.
func Summary(orders []models.Order, customers []models.Customer, p period.Period) []models.KPI {
	if !p.Valid() {
		p = period.Month
	}
	revenue := decimal.Zero
	units, replacements := 0, 0
	var first, last time.Time
	byPeriod := make(map[int]decimal.Decimal)
	lastOrdinal := 0
	for i, o := range orders {
		r := decimal.NewFromFloat(o.Revenue)
		revenue = revenue.Add(r)
		units += o.Items
		if o.Replacement {
			replacements++
		}
		if i == 0 || o.OrderDate.Before(first) {
			first = o.OrderDate
		}
		if i == 0 || o.OrderDate.After(last) {
			last = o.OrderDate
		}
		n := p.Ordinal(o.OrderDate)
		byPeriod[n] = byPeriod[n].Add(r)
		if i == 0 || n > lastOrdinal {
			lastOrdinal = n
		}
	}
	repeat := 0
	for _, c := range customers {
		if c.Orders > 1 {
			repeat++
		}
	}

	growth := models.NullFloat{}
	if prev, ok := byPeriod[lastOrdinal-1]; ok {
		growth = SalesGrowthRate(prev, byPeriod[lastOrdinal])
	}
	velocity := models.NullFloat{}
	if len(orders) > 0 {
		velocity = SalesVelocity(units, models.DaysBetween(first, last)+1, 30)
	}

	return []models.KPI{
		{Name: KPIRevenue, Value: models.Float(revenue.Round(2).InexactFloat64())},
		{Name: KPIOrders, Value: models.Float(float64(len(orders)))},
		{Name: KPICustomers, Value: models.Float(float64(len(customers)))},
		{Name: KPIUnits, Value: models.Float(float64(units))},
		{Name: KPIAOV, Value: AOV(revenue, len(orders))},
		{Name: KPIRevenuePerUnit, Value: RevenuePerUnit(revenue, units)},
		{Name: KPIRepeatCustomerRate, Value: RetentionRate(repeat, len(customers))},
		{Name: KPIReplacementRate, Value: Rate(replacements, len(orders))},
		{Name: KPISalesGrowthRate, Value: growth},
		{Name: KPISalesVelocity, Value: velocity},
	}
}
