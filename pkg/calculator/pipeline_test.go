package calculator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"ecomtools/pkg/models"
)

func rawTable() models.RawTable {
	return models.RawTable{
		Header: []string{"order_id", "order_date", "customer_id", "sku", "quantity", "unit_price"},
		Rows: [][]string{
			{"1", "2021-01-01 10:00:00", "X", "A", "1", "10.00"},
			{"2", "2021-01-11 10:00:00", "X", "B", "2", "10.00"},
			{"3", "2021-01-26 10:00:00", "X", "A", "3", "10.00"},
			{"4", "2021-01-05 08:00:00", "Y", "A", "1", "4.50"},
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := models.DefaultConfig()
	var progress bytes.Buffer
	cfg.Progress = &progress

	report, err := Run(context.Background(), rawTable(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RunID == "" || report.Items != 4 || len(report.Orders) != 4 {
		t.Fatalf("unexpected report header: id=%q items=%d orders=%d", report.RunID, report.Items, len(report.Orders))
	}
	wantRef := time.Date(2021, 1, 26, 10, 0, 0, 0, time.UTC)
	if !report.Reference.Equal(wantRef) {
		t.Fatalf("reference = %v, want latest order date %v", report.Reference, wantRef)
	}

	var x models.Customer
	for _, c := range report.Customers {
		if c.CustomerID == "X" {
			x = c
		}
	}
	if x.Orders != 3 || x.Revenue != 60 || x.Tenure != 25 || x.Recency != 0 || x.AvgOrderValue.Float64 != 20 {
		t.Fatalf("unexpected customer X: %+v", x)
	}
	if len(report.Products) != 2 || len(report.RFM) != 2 || len(report.CustomerABC) != 2 || len(report.ProductABC) != 2 {
		t.Fatalf("missing segment rows: %+v", report)
	}
	if c := report.Cohorts.Cell("2021-01", 0); c.Float64 != 2 {
		t.Fatalf("cohort cell = %+v, want 2", c)
	}
	if report.LatencySummary.Customers != 1 {
		t.Fatalf("latency summary = %+v", report.LatencySummary)
	}
	if len(report.Overview) != 1 || report.Overview[0].Revenue != 64.5 {
		t.Fatalf("unexpected overview: %+v", report.Overview)
	}
	if len(report.KPIs) == 0 || report.KPIs[0].Name != "revenue" || report.KPIs[0].Value.Float64 != 64.5 {
		t.Fatalf("unexpected kpis: %+v", report.KPIs)
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := models.DefaultConfig()

	empty := models.RawTable{Header: rawTable().Header}
	if _, err := Run(context.Background(), empty, cfg); !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	anonymous := rawTable()
	for _, row := range anonymous.Rows {
		row[2] = ""
	}
	if _, err := Run(context.Background(), anonymous, cfg); !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput when no line has a customer, got %v", err)
	}

	broken := rawTable()
	broken.Header[5] = "price"
	if _, err := Run(context.Background(), broken, cfg); !errors.Is(err, models.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, rawTable(), cfg); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunKind(t *testing.T) {
	cfg := models.DefaultConfig()
	for _, kind := range Kinds {
		table, err := RunKind(context.Background(), rawTable(), cfg, kind)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if len(table.Header()) == 0 || len(table.Values()) == 0 {
			t.Fatalf("%s: empty table", kind)
		}
		for _, rec := range models.Records(table) {
			if len(rec) != len(table.Header()) {
				t.Fatalf("%s: record width %d, header width %d", kind, len(rec), len(table.Header()))
			}
		}
	}
	if _, err := RunKind(context.Background(), rawTable(), cfg, "churn"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
