// Package calculator runs the analyses over a raw transaction table.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ecomtools/pkg/cohorts"
	"ecomtools/pkg/customers"
	"ecomtools/pkg/latency"
	"ecomtools/pkg/metrics"
	"ecomtools/pkg/models"
	"ecomtools/pkg/normalize"
	"ecomtools/pkg/products"
	"ecomtools/pkg/reports"
	"ecomtools/pkg/segments"
	"ecomtools/pkg/transactions"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Analysis kinds accepted by RunKind.
const (
	KindTransactions = "transactions"
	KindCustomers    = "customers"
	KindProducts     = "products"
	KindCohorts      = "cohorts"
	KindAssignments  = "assignments"
	KindRetention    = "retention"
	KindRFM          = "rfm"
	KindProductRFM   = "product-rfm"
	KindABC          = "abc"
	KindProductABC   = "product-abc"
	KindLatency      = "latency"
	KindOverview     = "overview"
	KindKPIs         = "kpis"
)

// Kinds lists every analysis RunKind knows, in pipeline order.
var Kinds = []string{
	KindTransactions, KindCustomers, KindProducts, KindCohorts, KindAssignments, KindRetention,
	KindRFM, KindProductRFM, KindABC, KindProductABC, KindLatency, KindOverview, KindKPIs,
}

var ErrUnknownKind = errors.New("unknown analysis")

// run carries one pipeline execution. Stages fill the fields they own and reuse earlier ones.
type run struct {
	id    string
	cfg   models.Config
	ref   time.Time
	items []models.TransactionItem
	bar   *progressbar.ProgressBar
	log   *slog.Logger

	orders    []models.Order
	customers []models.Customer
	products  []models.Product
}

func newRun(raw models.RawTable, cfg models.Config, stages int) (*run, error) {
	r := &run{id: uuid.NewString(), cfg: cfg}
	r.log = slog.Default().With("run_id", r.id)

	w := cfg.Progress
	if w == nil {
		w = io.Discard
	}
	r.bar = progressbar.NewOptions(stages+1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("normalize"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	items, err := normalize.Normalize(raw, cfg.Mapping)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("normalize: %w", models.ErrEmptyInput)
	}
	r.items = items
	r.ref = models.ResolveReference(cfg.Reference, items)
	r.done("normalize", len(items), start)
	return r, nil
}

func (r *run) done(stage string, rows int, start time.Time) {
	_ = r.bar.Add(1)
	r.bar.Describe(stage)
	level := slog.LevelDebug
	if r.cfg.Verbose {
		level = slog.LevelInfo
	}
	r.log.Log(context.Background(), level, "stage done", "stage", stage, "rows", rows, "elapsed", time.Since(start))
}

func (r *run) ordersStage() ([]models.Order, error) {
	if r.orders != nil {
		return r.orders, nil
	}
	start := time.Now()
	orders, err := transactions.Aggregate(r.items)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	r.orders = orders
	r.done(KindTransactions, len(orders), start)
	return orders, nil
}

func (r *run) customersStage() ([]models.Customer, error) {
	if r.customers != nil {
		return r.customers, nil
	}
	start := time.Now()
	cs, err := customers.Aggregate(r.items, customers.Options{Reference: r.ref, CohortPeriod: r.cfg.CustomerCohortPeriod})
	if err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}
	r.customers = cs
	r.done(KindCustomers, len(cs), start)
	return cs, nil
}

func (r *run) productsStage() ([]models.Product, error) {
	if r.products != nil {
		return r.products, nil
	}
	start := time.Now()
	ps, err := products.Aggregate(r.items, products.Options{Reference: r.ref, Days: r.cfg.ProductDays})
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	r.products = ps
	r.done(KindProducts, len(ps), start)
	return ps, nil
}

func (r *run) matrixOptions() cohorts.MatrixOptions {
	return cohorts.MatrixOptions{Period: r.cfg.Period, Measure: r.cfg.Measure, Percentage: r.cfg.Percentage}
}

// Run normalizes raw and computes every analysis into one report.
func Run(ctx context.Context, raw models.RawTable, cfg models.Config) (*models.Report, error) {
	r, err := newRun(raw, cfg, 11)
	if err != nil {
		return nil, err
	}
	r.log.Info("pipeline started", "items", len(r.items), "reference", r.ref.Format("2006-01-02"))
	report := &models.Report{RunID: r.id, GeneratedAt: time.Now().UTC(), Reference: r.ref, Items: len(r.items)}

	steps := []func() error{
		func() (err error) { report.Orders, err = r.ordersStage(); return },
		func() (err error) { report.Customers, err = r.customersStage(); return },
		func() (err error) { report.Products, err = r.productsStage(); return },
		func() error {
			start := time.Now()
			rows, err := cohorts.Retention(r.items, cfg.Period)
			if err != nil {
				return fmt.Errorf("retention: %w", err)
			}
			report.Retention = rows
			r.done(KindRetention, len(rows), start)
			return nil
		},
		func() error {
			start := time.Now()
			m, err := cohorts.Matrix(r.items, r.matrixOptions())
			if err != nil {
				return fmt.Errorf("cohorts: %w", err)
			}
			report.Cohorts = m
			r.done(KindCohorts, len(m.Cohorts), start)
			return nil
		},
		func() error {
			start := time.Now()
			report.RFM = segments.CustomerRFM(report.Customers, cfg.RFM)
			r.done(KindRFM, len(report.RFM), start)
			return nil
		},
		func() error {
			start := time.Now()
			report.CustomerABC = segments.CustomerABC(r.items, r.ref, cfg.ABC)
			r.done(KindABC, len(report.CustomerABC), start)
			return nil
		},
		func() error {
			start := time.Now()
			report.ProductABC = segments.ProductABC(r.items, r.ref, cfg.ABC)
			r.done(KindProductABC, len(report.ProductABC), start)
			return nil
		},
		func() error {
			start := time.Now()
			report.Latency = latency.Estimate(report.Orders, latency.Options{Reference: r.ref, DueSoonDays: cfg.DueSoonDays})
			report.LatencySummary = latency.Summarize(report.Latency)
			r.done(KindLatency, len(report.Latency), start)
			return nil
		},
		func() error {
			start := time.Now()
			rows, err := reports.PeriodOverview(r.items, cfg.Period)
			if err != nil {
				return fmt.Errorf("overview: %w", err)
			}
			report.Overview = rows
			r.done(KindOverview, len(rows), start)
			return nil
		},
		func() error {
			start := time.Now()
			report.KPIs = metrics.Summary(report.Orders, report.Customers, cfg.Period)
			r.done(KindKPIs, len(report.KPIs), start)
			return nil
		},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(); err != nil {
			return nil, err
		}
	}
	_ = r.bar.Finish()
	r.log.Info("pipeline finished", "orders", len(report.Orders), "customers", len(report.Customers), "products", len(report.Products))
	return report, nil
}

// RunKind normalizes raw and computes a single analysis, running only the stages it needs.
func RunKind(ctx context.Context, raw models.RawTable, cfg models.Config, kind string) (models.Table, error) {
	if !KnownKind(kind) {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	r, err := newRun(raw, cfg, 3)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() { _ = r.bar.Finish() }()

	start := time.Now()
	switch kind {
	case KindTransactions:
		orders, err := r.ordersStage()
		if err != nil {
			return nil, err
		}
		return models.Orders(orders), nil
	case KindCustomers:
		cs, err := r.customersStage()
		if err != nil {
			return nil, err
		}
		return models.Customers(cs), nil
	case KindProducts:
		ps, err := r.productsStage()
		if err != nil {
			return nil, err
		}
		return models.Products(ps), nil
	case KindCohorts:
		m, err := cohorts.Matrix(r.items, r.matrixOptions())
		if err != nil {
			return nil, fmt.Errorf("cohorts: %w", err)
		}
		r.done(kind, len(m.Cohorts), start)
		return m, nil
	case KindAssignments:
		rows, err := cohorts.Assign(r.items, cfg.Period)
		if err != nil {
			return nil, fmt.Errorf("assignments: %w", err)
		}
		r.done(kind, len(rows), start)
		return models.Assignments(rows), nil
	case KindRetention:
		rows, err := cohorts.Retention(r.items, cfg.Period)
		if err != nil {
			return nil, fmt.Errorf("retention: %w", err)
		}
		r.done(kind, len(rows), start)
		return models.RetentionRows(rows), nil
	case KindRFM:
		cs, err := r.customersStage()
		if err != nil {
			return nil, err
		}
		return models.RFMSegments(segments.CustomerRFM(cs, cfg.RFM)), nil
	case KindProductRFM:
		ps, err := r.productsStage()
		if err != nil {
			return nil, err
		}
		return models.RFMSegments(segments.ProductRFM(ps, cfg.RFM)), nil
	case KindABC:
		return models.ABCSegments(segments.CustomerABC(r.items, r.ref, cfg.ABC)), nil
	case KindProductABC:
		return models.ABCSegments(segments.ProductABC(r.items, r.ref, cfg.ABC)), nil
	case KindLatency:
		orders, err := r.ordersStage()
		if err != nil {
			return nil, err
		}
		return models.Latencies(latency.Estimate(orders, latency.Options{Reference: r.ref, DueSoonDays: cfg.DueSoonDays})), nil
	case KindOverview:
		rows, err := reports.PeriodOverview(r.items, cfg.Period)
		if err != nil {
			return nil, fmt.Errorf("overview: %w", err)
		}
		r.done(kind, len(rows), start)
		return models.PeriodOverviews(rows), nil
	case KindKPIs:
		orders, err := r.ordersStage()
		if err != nil {
			return nil, err
		}
		cs, err := r.customersStage()
		if err != nil {
			return nil, err
		}
		return models.KPIs(metrics.Summary(orders, cs, cfg.Period)), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// KnownKind reports whether RunKind accepts kind.
func KnownKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
