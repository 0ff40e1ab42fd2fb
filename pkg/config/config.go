// Package config loads ecomtools settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"ecomtools/pkg/calculator"
	"ecomtools/pkg/models"
	"ecomtools/pkg/period"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Analysis models.Config

	DSN   string
	Table string
	CSV   string

	OutputDir     string
	OutputFormat  string
	MongoURI      string
	MongoDatabase string

	HTTPPort int
}

type configFile struct {
	Source struct {
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table"`
		CSV   string `yaml:"csv"`
	} `yaml:"source"`
	Mapping  *models.ColumnMapping `yaml:"mapping"`
	Analysis struct {
		ReferenceDate        string   `yaml:"reference_date"`
		Period               string   `yaml:"period"`
		CustomerCohortPeriod string   `yaml:"customer_cohort_period"`
		Measure              string   `yaml:"measure"`
		Percentage           bool     `yaml:"percentage"`
		RFMBins              int      `yaml:"rfm_bins"`
		ABCMonths            *int     `yaml:"abc_months"`
		ProductDays          int      `yaml:"product_days"`
		DueSoonDays          *float64 `yaml:"due_soon_days"`
		Verbose              bool     `yaml:"verbose"`
	} `yaml:"analysis"`
	ABC struct {
		Thresholds []models.ABCThreshold `yaml:"thresholds"`
		Remainder  string                `yaml:"remainder"`
		Lapsed     string                `yaml:"lapsed"`
	} `yaml:"abc"`
	RFM struct {
		Rules    []models.SegmentRule `yaml:"rules"`
		Fallback string               `yaml:"fallback"`
	} `yaml:"rfm"`
	Output struct {
		Dir           string `yaml:"dir"`
		Format        string `yaml:"format"`
		MongoURI      string `yaml:"mongo_uri"`
		MongoDatabase string `yaml:"mongo_database"`
	} `yaml:"output"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func Default() Settings {
	return Settings{
		Analysis:      models.DefaultConfig(),
		Table:         "transactions",
		OutputDir:     "output",
		OutputFormat:  "csv",
		MongoDatabase: "ecomtools",
		HTTPPort:      8080,
	}
}

// Load applies the YAML file at path (if any) and then the environment over the defaults.
// A missing file is not an error.
func Load(path string) (Settings, error) {
	cfg := Default()
	referenceDate := ""

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			var f configFile
			if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
				return Settings{}, fmt.Errorf("%w: parse config file: %v", models.ErrInvalidConfig, unmarshalErr)
			}
			if err := apply(&cfg, f); err != nil {
				return Settings{}, err
			}
			referenceDate = f.Analysis.ReferenceDate
		case !errors.Is(err, fs.ErrNotExist):
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.DSN = envOrDefault("ECOMTOOLS_DSN", cfg.DSN)
	cfg.Table = envOrDefault("ECOMTOOLS_TABLE", cfg.Table)
	cfg.CSV = envOrDefault("ECOMTOOLS_CSV", cfg.CSV)
	cfg.OutputDir = envOrDefault("ECOMTOOLS_OUTPUT_DIR", cfg.OutputDir)
	cfg.MongoURI = envOrDefault("ECOMTOOLS_MONGO_URI", cfg.MongoURI)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	referenceDate = envOrDefault("ECOMTOOLS_REFERENCE_DATE", referenceDate)

	ref, err := calculator.ParseReference(referenceDate)
	if err != nil {
		return Settings{}, err
	}
	cfg.Analysis.Reference = ref

	if err := Validate(cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func apply(cfg *Settings, f configFile) error {
	if f.Source.DSN != "" {
		cfg.DSN = f.Source.DSN
	}
	if f.Source.Table != "" {
		cfg.Table = f.Source.Table
	}
	cfg.CSV = f.Source.CSV
	if f.Mapping != nil {
		cfg.Analysis.Mapping = mergeMapping(cfg.Analysis.Mapping, *f.Mapping)
	}

	a := &cfg.Analysis
	if f.Analysis.Period != "" {
		p, err := period.Parse(f.Analysis.Period)
		if err != nil {
			return fmt.Errorf("%w: analysis.period: %v", models.ErrInvalidConfig, err)
		}
		a.Period = p
	}
	if f.Analysis.CustomerCohortPeriod != "" {
		p, err := period.Parse(f.Analysis.CustomerCohortPeriod)
		if err != nil {
			return fmt.Errorf("%w: analysis.customer_cohort_period: %v", models.ErrInvalidConfig, err)
		}
		a.CustomerCohortPeriod = p
	}
	if f.Analysis.Measure != "" {
		a.Measure = strings.ToLower(f.Analysis.Measure)
	}
	a.Percentage = f.Analysis.Percentage
	a.Verbose = f.Analysis.Verbose
	a.ProductDays = f.Analysis.ProductDays
	if f.Analysis.RFMBins != 0 {
		a.RFM.Bins = f.Analysis.RFMBins
	}
	if f.Analysis.ABCMonths != nil {
		a.ABC.Months = *f.Analysis.ABCMonths
	}
	if f.Analysis.DueSoonDays != nil {
		a.DueSoonDays = *f.Analysis.DueSoonDays
	}
	if len(f.ABC.Thresholds) > 0 {
		a.ABC.Thresholds = f.ABC.Thresholds
	}
	if f.ABC.Remainder != "" {
		a.ABC.Remainder = f.ABC.Remainder
	}
	if f.ABC.Lapsed != "" {
		a.ABC.Lapsed = f.ABC.Lapsed
	}
	if len(f.RFM.Rules) > 0 {
		a.RFM.Rules = f.RFM.Rules
	}
	if f.RFM.Fallback != "" {
		a.RFM.Fallback = f.RFM.Fallback
	}

	if f.Output.Dir != "" {
		cfg.OutputDir = f.Output.Dir
	}
	if f.Output.Format != "" {
		cfg.OutputFormat = strings.ToLower(f.Output.Format)
	}
	cfg.MongoURI = f.Output.MongoURI
	if f.Output.MongoDatabase != "" {
		cfg.MongoDatabase = f.Output.MongoDatabase
	}
	if f.Server.Port > 0 {
		cfg.HTTPPort = f.Server.Port
	}
	return nil
}

// mergeMapping overrides base with every column named in m.
func mergeMapping(base, m models.ColumnMapping) models.ColumnMapping {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Date, m.Date)
	set(&base.OrderID, m.OrderID)
	set(&base.CustomerID, m.CustomerID)
	set(&base.SKU, m.SKU)
	set(&base.Quantity, m.Quantity)
	set(&base.UnitPrice, m.UnitPrice)
	set(&base.Description, m.Description)
	set(&base.Country, m.Country)
	return base
}

// Validate rejects settings the analyses cannot run with.
func Validate(cfg Settings) error {
	a := cfg.Analysis
	if !a.Period.Valid() || !a.CustomerCohortPeriod.Valid() {
		return fmt.Errorf("%w: unsupported period", models.ErrInvalidConfig)
	}
	if a.Measure != models.MeasureCustomers && a.Measure != models.MeasureRevenue {
		return fmt.Errorf("%w: measure must be %q or %q", models.ErrInvalidConfig, models.MeasureCustomers, models.MeasureRevenue)
	}
	if a.RFM.Bins < 1 || a.RFM.Bins > 9 {
		return fmt.Errorf("%w: rfm_bins must be between 1 and 9", models.ErrInvalidConfig)
	}
	if a.ABC.Months < 0 || a.ProductDays < 0 {
		return fmt.Errorf("%w: abc_months and product_days must not be negative", models.ErrInvalidConfig)
	}
	last := 0.0
	for _, th := range a.ABC.Thresholds {
		if th.Class == "" || th.MaxShare <= last || th.MaxShare > 100 {
			return fmt.Errorf("%w: abc thresholds must be named and ascending within (0, 100]", models.ErrInvalidConfig)
		}
		last = th.MaxShare
	}
	if cfg.OutputFormat != "csv" && cfg.OutputFormat != "json" {
		return fmt.Errorf("%w: output format must be csv or json", models.ErrInvalidConfig)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("%w: invalid http port %d", models.ErrInvalidConfig, cfg.HTTPPort)
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
