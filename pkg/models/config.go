package models

import (
	"io"
	"time"

	"ecomtools/pkg/period"
)

/*
CONFIG → parameters passed to the pipeline and the individual analyses.
*/

// Config drives a full pipeline run.
type Config struct {
	Mapping              ColumnMapping
	Reference            time.Time     // "now" for tenure/recency; zero means the latest order date
	Period               period.Period // cohort matrix, retention and overview granularity
	CustomerCohortPeriod period.Period // Customer.Cohort code granularity
	Measure              string        // MeasureCustomers or MeasureRevenue
	Percentage           bool
	ProductDays          int     // trailing window for products, 0 = all history
	DueSoonDays          float64 // latency "due soon" window, ≤0 = customer's std latency
	RFM                  RFMPolicy
	ABC                  ABCPolicy
	Verbose              bool
	Progress             io.Writer // progress bar output, nil = silent
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Mapping:              DefaultMapping(),
		Period:               period.Month,
		CustomerCohortPeriod: period.Quarter,
		Measure:              MeasureCustomers,
		DueSoonDays:          7,
		RFM:                  DefaultRFMPolicy(),
		ABC:                  DefaultABCPolicy(),
	}
}

// ScoreRange bounds a score digit; a zero bound is open.
type ScoreRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (r ScoreRange) Contains(v int) bool {
	if r.Min != 0 && v < r.Min {
		return false
	}
	if r.Max != 0 && v > r.Max {
		return false
	}
	return true
}

// SegmentRule names the segment for scores falling in every listed range.
type SegmentRule struct {
	Label     string     `yaml:"label"`
	Recency   ScoreRange `yaml:"recency"`
	Frequency ScoreRange `yaml:"frequency"`
	Monetary  ScoreRange `yaml:"monetary"`
}

func (r SegmentRule) Matches(rs, fs, ms int) bool {
	return r.Recency.Contains(rs) && r.Frequency.Contains(fs) && r.Monetary.Contains(ms)
}

// RFMPolicy sets the number of quantile bins and the segment lookup table.
// Rules are evaluated in order, the first match wins.
type RFMPolicy struct {
	Bins     int           `yaml:"bins"`
	Rules    []SegmentRule `yaml:"rules"`
	Fallback string        `yaml:"fallback"`
}

// Label returns the segment for a score triple.
func (p RFMPolicy) Label(rs, fs, ms int) string {
	for _, rule := range p.Rules {
		if rule.Matches(rs, fs, ms) {
			return rule.Label
		}
	}
	if p.Fallback == "" {
		return "Other"
	}
	return p.Fallback
}

// DefaultRFMPolicy scores on five bins where 1 is best and labels with the classic
// Star / Loyal / Potential loyal / Hold and improve / Risky table.
func DefaultRFMPolicy() RFMPolicy {
	one := ScoreRange{Min: 1, Max: 1}
	two := ScoreRange{Min: 2, Max: 2}
	three := ScoreRange{Min: 3, Max: 3}
	return RFMPolicy{
		Bins: 5,
		Rules: []SegmentRule{
			{Label: "Star", Recency: one, Frequency: one},
			{Label: "Star", Recency: one, Frequency: two, Monetary: ScoreRange{Max: 4}},
			{Label: "Star", Recency: two, Frequency: one, Monetary: one},
			{Label: "Loyal", Recency: one},
			{Label: "Loyal", Recency: two},
			{Label: "Loyal", Recency: three, Frequency: one, Monetary: ScoreRange{Max: 2}},
			{Label: "Potential loyal", Recency: three},
			{Label: "Hold and improve", Recency: ScoreRange{Min: 4, Max: 4}},
			{Label: "Risky", Recency: ScoreRange{Min: 5}},
		},
		Fallback: "Other",
	}
}

// ABCThreshold assigns Class to entities whose cumulative share (percent) is ≤ MaxShare.
type ABCThreshold struct {
	Class    string  `yaml:"class"`
	MaxShare float64 `yaml:"max_share"`
}

// ABCPolicy classifies entities by cumulative value contribution over a trailing window.
type ABCPolicy struct {
	Months     int            `yaml:"months"` // window, entities with recency > Months*30 are lapsed; 0 = no window
	Thresholds []ABCThreshold `yaml:"thresholds"`
	Remainder  string         `yaml:"remainder"`
	Lapsed     string         `yaml:"lapsed"`
}

func DefaultABCPolicy() ABCPolicy {
	return ABCPolicy{
		Months: 12,
		Thresholds: []ABCThreshold{
			{Class: "A", MaxShare: 80},
			{Class: "B", MaxShare: 90},
		},
		Remainder: "C",
		Lapsed:    "D",
	}
}
