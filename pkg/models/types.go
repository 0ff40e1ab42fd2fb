package models

import (
	"time"
)

/*
LOAD → raw rows as read from a CSV file or a database table, before normalization.
*/

// RawTable is an untyped table: a header and string cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// ColumnMapping names the source columns holding each canonical transaction field.
// Description and Country are optional; leave them empty when the source has none.
type ColumnMapping struct {
	Date        string `yaml:"date"`
	OrderID     string `yaml:"order_id"`
	CustomerID  string `yaml:"customer_id"`
	SKU         string `yaml:"sku"`
	Quantity    string `yaml:"quantity"`
	UnitPrice   string `yaml:"unit_price"`
	Description string `yaml:"description"`
	Country     string `yaml:"country"`
}

// DefaultMapping returns the canonical column names.
func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		Date:        "order_date",
		OrderID:     "order_id",
		CustomerID:  "customer_id",
		SKU:         "sku",
		Quantity:    "quantity",
		UnitPrice:   "unit_price",
		Description: "description",
		Country:     "country",
	}
}

/*
NORMALIZE → canonical transaction lines.
*/

// TransactionItem is one order line. Quantity is negative for returns.
type TransactionItem struct {
	OrderID     string
	SKU         string
	Description string
	Quantity    int
	OrderDate   time.Time
	UnitPrice   float64
	CustomerID  string
	Country     string
	LinePrice   float64 // Quantity × UnitPrice, rounded to 2 decimals
}

/*
AGGREGATE → one row per order, customer or product.
*/

type Order struct {
	OrderID     string
	OrderDate   time.Time
	CustomerID  string
	SKUs        int
	Items       int
	Revenue     float64
	Replacement bool // net revenue ≤ 0
	OrderNumber int  // 1..N per customer, by order date
}

type Customer struct {
	CustomerID     string
	FirstOrderDate time.Time
	LastOrderDate  time.Time
	Orders         int
	SKUs           int
	Items          int
	Revenue        float64
	AvgItems       NullFloat
	AvgOrderValue  NullFloat
	Tenure         int // days since first order
	Recency        int // days since last order
	Cohort         int // period code of the first order
}

type Product struct {
	SKU              string
	Description      string
	FirstOrderDate   time.Time
	LastOrderDate    time.Time
	Customers        int
	Orders           int
	Items            int
	Revenue          float64
	AvgUnitPrice     float64
	AvgQuantity      float64
	AvgRevenue       float64
	AvgOrders        float64
	Tenure           int
	Recency          int
	Repurchasers     int
	RepurchaseRate   float64
	BulkOrders       int
	BulkPurchaseRate float64
	RepurchaseLabel  string
	BulkLabel        string
}

/*
COHORTS → acquisition/order cohort assignments, retention rows and the pivoted matrix.
*/

type CohortAssignment struct {
	CustomerID        string
	OrderID           string
	OrderDate         time.Time
	AcquisitionCohort string
	OrderCohort       string
	Periods           int
}

type RetentionRow struct {
	AcquisitionCohort string
	OrderCohort       string
	Periods           int
	Customers         int
	Revenue           float64
}

const (
	MeasureCustomers = "customers"
	MeasureRevenue   = "revenue"
)

// CohortMatrix holds one row per acquisition cohort and one column per period offset.
// Cells without activity are invalid, not zero.
type CohortMatrix struct {
	Period     string
	Measure    string
	Percentage bool
	Cohorts    []string
	Cells      [][]NullFloat
}

// Offsets returns the number of offset columns.
func (m CohortMatrix) Offsets() int {
	n := 0
	for _, row := range m.Cells {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// Cell returns the value at (cohort, offset); unknown cohorts and offsets are invalid.
func (m CohortMatrix) Cell(cohort string, offset int) NullFloat {
	for i, c := range m.Cohorts {
		if c != cohort {
			continue
		}
		if offset < 0 || offset >= len(m.Cells[i]) {
			return NullFloat{}
		}
		return m.Cells[i][offset]
	}
	return NullFloat{}
}

/*
SEGMENTS → RFM(H) scores and ABC classes.
*/

type RFMSegment struct {
	ID              string
	AcquisitionDate time.Time
	RecencyDate     time.Time
	Recency         int
	Frequency       int
	Monetary        float64
	Heterogeneity   int
	Tenure          int
	R, F, M, H      int
	RFM             string // e.g. "111"
	RFMH            string // e.g. "1111"
	RFMScore        int    // R + F + M
	Segment         string
}

type ABCSegment struct {
	ID    string
	Value float64
	Share float64 // cumulative percentage of value, 0 for lapsed entities
	Class string
	Rank  int
}

/*
LATENCY → time between consecutive orders.
*/

type Latency struct {
	CustomerID      string
	Frequency       int
	RecencyDate     time.Time
	Recency         int
	AvgLatency      NullFloat
	MinLatency      NullFloat
	MaxLatency      NullFloat
	StdLatency      NullFloat
	CV              NullFloat
	DaysToNextOrder NullFloat
	Label           string
}

// LatencyDistribution summarizes average latency across customers, in days.
type LatencyDistribution struct {
	Customers int
	Mean      float64
	P50       float64
	P75       float64
	P90       float64
	P95       float64
	P99       float64
}

/*
REPORTS
*/

type PeriodOverview struct {
	Period                string
	Customers             int
	Orders                int
	Units                 int
	Revenue               float64
	AvgOrderValue         NullFloat
	AvgUnitsPerOrder      NullFloat
	AvgOrdersPerCustomer  NullFloat
	AvgRevenuePerCustomer NullFloat
}

// Report bundles the output of a full pipeline run.
type Report struct {
	RunID          string
	GeneratedAt    time.Time
	Reference      time.Time
	Items          int
	Orders         []Order
	Customers      []Customer
	Products       []Product
	Retention      []RetentionRow
	Cohorts        CohortMatrix
	RFM            []RFMSegment
	CustomerABC    []ABCSegment
	ProductABC     []ABCSegment
	Latency        []Latency
	LatencySummary LatencyDistribution
	Overview       []PeriodOverview
	KPIs           []KPI
}

// KPI is one headline figure over the whole input, e.g. average order value.
type KPI struct {
	Name  string
	Value NullFloat
}
