// Package latency measures the time between a customer's consecutive orders and
// estimates when the next one is due.
package latency

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"ecomtools/pkg/models"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/montanaflynn/stats"
)

const (
	LabelOverdue  = "Order overdue"
	LabelDueSoon  = "Order due soon"
	LabelNotDue   = "Order not due"
	LabelTooFew   = "Not enough orders"
	hoursPerDay   = 24
	maxTrackHours = 100 * 365 * hoursPerDay
)

type Options struct {
	Reference   time.Time // zero = latest order date
	DueSoonDays float64   // ≤0 uses the customer's own latency std as the window
}

// Estimate returns one row per customer, sorted by customer id. Replacement orders are
// ignored; customers with fewer than two remaining orders get no statistics.
func Estimate(orders []models.Order, opts Options) []models.Latency {
	ref := opts.Reference
	byCustomer := make(map[string][]time.Time)
	for _, o := range orders {
		if o.OrderDate.After(ref) && opts.Reference.IsZero() {
			ref = o.OrderDate
		}
		if o.CustomerID == "" {
			continue
		}
		if _, ok := byCustomer[o.CustomerID]; !ok {
			byCustomer[o.CustomerID] = nil
		}
		if o.Replacement {
			continue
		}
		byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o.OrderDate)
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Latency, 0, len(ids))
	for _, id := range ids {
		dates := byCustomer[id]
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		row := models.Latency{CustomerID: id, Frequency: len(dates), Label: LabelTooFew}
		if len(dates) > 0 {
			row.RecencyDate = dates[len(dates)-1]
			row.Recency = models.DaysBetween(row.RecencyDate, ref)
		}
		if len(dates) < 2 {
			out = append(out, row)
			continue
		}

		deltas := make(stats.Float64Data, 0, len(dates)-1)
		for i := 1; i < len(dates); i++ {
			deltas = append(deltas, dates[i].Sub(dates[i-1]).Hours()/hoursPerDay)
		}
		avg, _ := deltas.Mean()
		lo, _ := deltas.Min()
		hi, _ := deltas.Max()
		std, _ := deltas.StandardDeviationPopulation()

		row.AvgLatency = models.Float(avg)
		row.MinLatency = models.Float(lo)
		row.MaxLatency = models.Float(hi)
		row.StdLatency = models.Float(std)
		row.CV = models.Ratio(std, avg)
		next := avg - float64(row.Recency)
		row.DaysToNextOrder = models.Float(next)

		window := opts.DueSoonDays
		if window <= 0 {
			window = std
		}
		switch {
		case next < 0:
			row.Label = LabelOverdue
		case next <= window:
			row.Label = LabelDueSoon
		default:
			row.Label = LabelNotDue
		}
		out = append(out, row)
	}
	return out
}

// Summarize describes the spread of average latency across customers with enough
// orders. Percentiles come from an HDR histogram at one-hour resolution.
func Summarize(rows []models.Latency) models.LatencyDistribution {
	h := hdrhistogram.New(1, maxTrackHours, 3)
	var avgs stats.Float64Data
	for _, r := range rows {
		if !r.AvgLatency.Valid {
			continue
		}
		avgs = append(avgs, r.AvgLatency.Float64)
		hours := int64(math.Round(r.AvgLatency.Float64 * hoursPerDay))
		if hours < 1 {
			hours = 1
		}
		if hours > maxTrackHours {
			hours = maxTrackHours
		}
		if err := h.RecordValue(hours); err != nil {
			slog.Warn("latency not recorded", "customer_id", r.CustomerID, "hours", hours, "error", err.Error())
		}
	}
	if len(avgs) == 0 {
		return models.LatencyDistribution{}
	}
	mean, _ := avgs.Mean()
	at := func(q float64) float64 { return float64(h.ValueAtQuantile(q)) / hoursPerDay }
	return models.LatencyDistribution{
		Customers: len(avgs),
		Mean:      mean,
		P50:       at(50),
		P75:       at(75),
		P90:       at(90),
		P95:       at(95),
		P99:       at(99),
	}
}
