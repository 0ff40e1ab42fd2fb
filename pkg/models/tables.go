package models

import (
	"fmt"
	"strconv"
	"time"
)

// Table is any result that can be written out as rows. Values holds typed cells:
// string, int, float64, bool, NullFloat, or nil for an absent timestamp.
type Table interface {
	Header() []string
	Values() [][]any
}

// Records formats every cell of t as text. Absent values become "".
func Records(t Table) [][]string {
	values := t.Values()
	out := make([][]string, 0, len(values))
	for _, row := range values {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = format(v)
		}
		out = append(out, rec)
	}
	return out
}

// Plain unwraps NullFloat into float64 or nil for encoders that do not know it.
func Plain(v any) any {
	if n, ok := v.(NullFloat); ok {
		if !n.Valid {
			return nil
		}
		return n.Float64
	}
	return v
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case NullFloat:
		return x.String()
	}
	return fmt.Sprint(v)
}

const timestampLayout = "2006-01-02 15:04:05"

// ts renders a timestamp cell; the zero time is absent.
func ts(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timestampLayout)
}

type (
	Orders          []Order
	Customers       []Customer
	Products        []Product
	Assignments     []CohortAssignment
	RetentionRows   []RetentionRow
	RFMSegments     []RFMSegment
	ABCSegments     []ABCSegment
	Latencies       []Latency
	PeriodOverviews []PeriodOverview
	KPIs            []KPI
)

func (Orders) Header() []string {
	return []string{"order_id", "order_date", "customer_id", "skus", "items", "revenue", "replacement", "order_number"}
}

func (t Orders) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, o := range t {
		out = append(out, []any{
			o.OrderID, ts(o.OrderDate), o.CustomerID, o.SKUs, o.Items,
			o.Revenue, o.Replacement, o.OrderNumber,
		})
	}
	return out
}

func (Customers) Header() []string {
	return []string{"customer_id", "revenue", "orders", "skus", "items", "first_order_date", "last_order_date",
		"avg_items", "avg_order_value", "tenure", "recency", "cohort"}
}

func (t Customers) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, c := range t {
		out = append(out, []any{
			c.CustomerID, c.Revenue, c.Orders, c.SKUs, c.Items,
			ts(c.FirstOrderDate), ts(c.LastOrderDate), c.AvgItems, c.AvgOrderValue,
			c.Tenure, c.Recency, c.Cohort,
		})
	}
	return out
}

func (Products) Header() []string {
	return []string{"sku", "description", "first_order_date", "last_order_date", "customers", "orders", "items",
		"revenue", "avg_unit_price", "avg_quantity", "avg_revenue", "avg_orders", "product_tenure",
		"product_recency", "repurchasers", "repurchase_rate", "bulk_orders", "bulk_purchase_rate",
		"repurchase_rate_label", "bulk_purchase_rate_label"}
}

func (t Products) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, p := range t {
		out = append(out, []any{
			p.SKU, p.Description, ts(p.FirstOrderDate), ts(p.LastOrderDate), p.Customers, p.Orders,
			p.Items, p.Revenue, p.AvgUnitPrice, p.AvgQuantity, p.AvgRevenue,
			p.AvgOrders, p.Tenure, p.Recency, p.Repurchasers, p.RepurchaseRate,
			p.BulkOrders, p.BulkPurchaseRate, p.RepurchaseLabel, p.BulkLabel,
		})
	}
	return out
}

func (Assignments) Header() []string {
	return []string{"customer_id", "order_id", "order_date", "acquisition_cohort", "order_cohort", "periods"}
}

func (t Assignments) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, a := range t {
		out = append(out, []any{a.CustomerID, a.OrderID, ts(a.OrderDate), a.AcquisitionCohort, a.OrderCohort, a.Periods})
	}
	return out
}

func (RetentionRows) Header() []string {
	return []string{"acquisition_cohort", "order_cohort", "periods", "customers", "revenue"}
}

func (t RetentionRows) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, r := range t {
		out = append(out, []any{r.AcquisitionCohort, r.OrderCohort, r.Periods, r.Customers, r.Revenue})
	}
	return out
}

// Header lists the cohort column followed by one column per offset.
func (m CohortMatrix) Header() []string {
	h := []string{"acquisition_cohort"}
	for i := 0; i < m.Offsets(); i++ {
		h = append(h, strconv.Itoa(i))
	}
	return h
}

// Values pads short rows with absent cells so every row spans all offsets.
func (m CohortMatrix) Values() [][]any {
	n := m.Offsets()
	out := make([][]any, 0, len(m.Cohorts))
	for i, c := range m.Cohorts {
		row := make([]any, 0, n+1)
		row = append(row, c)
		for j := 0; j < n; j++ {
			if j < len(m.Cells[i]) {
				row = append(row, m.Cells[i][j])
			} else {
				row = append(row, NullFloat{})
			}
		}
		out = append(out, row)
	}
	return out
}

func (RFMSegments) Header() []string {
	return []string{"id", "acquisition_date", "recency_date", "recency", "frequency", "monetary", "heterogeneity",
		"tenure", "r", "f", "m", "h", "rfm", "rfmh", "rfm_score", "rfm_segment_name"}
}

func (t RFMSegments) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, s := range t {
		out = append(out, []any{
			s.ID, ts(s.AcquisitionDate), ts(s.RecencyDate), s.Recency, s.Frequency, s.Monetary,
			s.Heterogeneity, s.Tenure, s.R, s.F, s.M, s.H,
			s.RFM, s.RFMH, s.RFMScore, s.Segment,
		})
	}
	return out
}

func (ABCSegments) Header() []string {
	return []string{"id", "value", "share", "abc_class", "abc_rank"}
}

func (t ABCSegments) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, s := range t {
		out = append(out, []any{s.ID, s.Value, s.Share, s.Class, s.Rank})
	}
	return out
}

func (Latencies) Header() []string {
	return []string{"customer_id", "frequency", "recency_date", "recency", "avg_latency", "min_latency",
		"max_latency", "std_latency", "cv", "days_to_next_order", "label"}
}

func (t Latencies) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, l := range t {
		out = append(out, []any{
			l.CustomerID, l.Frequency, ts(l.RecencyDate), l.Recency, l.AvgLatency,
			l.MinLatency, l.MaxLatency, l.StdLatency, l.CV,
			l.DaysToNextOrder, l.Label,
		})
	}
	return out
}

func (PeriodOverviews) Header() []string {
	return []string{"period", "customers", "orders", "units", "revenue", "avg_order_value",
		"avg_units_per_order", "avg_orders_per_customer", "avg_revenue_per_customer"}
}

func (t PeriodOverviews) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, p := range t {
		out = append(out, []any{
			p.Period, p.Customers, p.Orders, p.Units, p.Revenue,
			p.AvgOrderValue, p.AvgUnitsPerOrder, p.AvgOrdersPerCustomer, p.AvgRevenuePerCustomer,
		})
	}
	return out
}

func (KPIs) Header() []string {
	return []string{"metric", "value"}
}

func (t KPIs) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, k := range t {
		out = append(out, []any{k.Name, k.Value})
	}
	return out
}

func (LatencyDistribution) Header() []string {
	return []string{"customers", "mean", "p50", "p75", "p90", "p95", "p99"}
}

func (d LatencyDistribution) Values() [][]any {
	return [][]any{{d.Customers, d.Mean, d.P50, d.P75, d.P90, d.P95, d.P99}}
}

// NamedTable pairs a table with the name it is exported under.
type NamedTable struct {
	Name  string
	Table Table
}

// Tables lists the report's tables in pipeline order.
func (r *Report) Tables() []NamedTable {
	return []NamedTable{
		{"transactions", Orders(r.Orders)},
		{"customers", Customers(r.Customers)},
		{"products", Products(r.Products)},
		{"retention", RetentionRows(r.Retention)},
		{"cohorts", r.Cohorts},
		{"rfm", RFMSegments(r.RFM)},
		{"abc", ABCSegments(r.CustomerABC)},
		{"product_abc", ABCSegments(r.ProductABC)},
		{"latency", Latencies(r.Latency)},
		{"latency_summary", r.LatencySummary},
		{"overview", PeriodOverviews(r.Overview)},
		{"kpis", KPIs(r.KPIs)},
	}
}
