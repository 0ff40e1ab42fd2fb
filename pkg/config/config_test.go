package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ecomtools/pkg/models"
	"ecomtools/pkg/period"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecomtools.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.Period != period.Month || cfg.HTTPPort != 8080 || cfg.OutputFormat != "csv" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Analysis.Reference.IsZero() {
		t.Fatalf("reference should default to zero, got %v", cfg.Analysis.Reference)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
source:
  dsn: sqlite://shop.db
  table: online_retail
mapping:
  date: InvoiceDate
  order_id: InvoiceNo
  customer_id: CustomerID
  sku: StockCode
  quantity: Quantity
  unit_price: UnitPrice
analysis:
  reference_date: "2011-12-31"
  period: q
  measure: revenue
  percentage: true
  rfm_bins: 4
  abc_months: 6
  due_soon_days: 0
abc:
  thresholds:
    - {class: A, max_share: 70}
    - {class: B, max_share: 95}
output:
  format: json
server:
  port: 9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := cfg.Analysis
	if cfg.DSN != "sqlite://shop.db" || cfg.Table != "online_retail" || a.Mapping.SKU != "StockCode" {
		t.Fatalf("source/mapping not applied: %+v", cfg)
	}
	if a.Period != period.Quarter || a.Measure != models.MeasureRevenue || !a.Percentage {
		t.Fatalf("analysis not applied: %+v", a)
	}
	if a.RFM.Bins != 4 || a.ABC.Months != 6 || a.DueSoonDays != 0 || a.ABC.Thresholds[0].MaxShare != 70 {
		t.Fatalf("policies not applied: %+v", a)
	}
	if !a.Reference.Equal(time.Date(2011, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("reference = %v", a.Reference)
	}
	if cfg.OutputFormat != "json" || cfg.HTTPPort != 9000 {
		t.Fatalf("output/server not applied: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "source:\n  dsn: sqlite://file.db\n")
	t.Setenv("ECOMTOOLS_DSN", "postgres://localhost/shop")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("ECOMTOOLS_REFERENCE_DATE", "012021")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DSN != "postgres://localhost/shop" || cfg.HTTPPort != 9999 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.Analysis.Reference.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("reference = %v", cfg.Analysis.Reference)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"period":     "analysis:\n  period: fortnight\n",
		"measure":    "analysis:\n  measure: units\n",
		"bins":       "analysis:\n  rfm_bins: 12\n",
		"thresholds": "abc:\n  thresholds:\n    - {class: A, max_share: 90}\n    - {class: B, max_share: 80}\n",
		"format":     "output:\n  format: xml\n",
		"reference":  "analysis:\n  reference_date: yesterday\n",
		"yaml":       "analysis: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, body)); !errors.Is(err, models.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoad_PartialMappingKeepsDefaults(t *testing.T) {
	path := writeFile(t, "mapping:\n  date: InvoiceDate\n  sku: StockCode\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := cfg.Analysis.Mapping
	if m.Date != "InvoiceDate" || m.SKU != "StockCode" {
		t.Fatalf("overrides not applied: %+v", m)
	}
	if m.OrderID != "order_id" || m.Country != "country" {
		t.Fatalf("unset columns lost their defaults: %+v", m)
	}
}

func TestLoad_ReferenceNowFromEnv(t *testing.T) {
	t.Setenv("ECOMTOOLS_REFERENCE_DATE", "now")
	before := time.Now().UTC().Add(-time.Second)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.Reference.Before(before) {
		t.Fatalf("reference = %v, want current time", cfg.Analysis.Reference)
	}
}
