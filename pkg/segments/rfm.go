// Package segments scores customers and products with RFM(H) quantiles and ABC classes.
package segments

import (
	"sort"
	"strconv"
	"time"

	"ecomtools/pkg/models"
)

// ScoreInput is one entity to score. Heterogeneity is the number of distinct SKUs for a
// customer, or distinct customers for a product.
type ScoreInput struct {
	ID              string
	AcquisitionDate time.Time
	RecencyDate     time.Time
	Recency         int
	Frequency       int
	Monetary        float64
	Heterogeneity   int
	Tenure          int
}

// Score bins each dimension into policy.Bins quantile scores where 1 is best: lowest
// recency, highest frequency, monetary and heterogeneity. Equal values always share a bin.
func Score(entities []ScoreInput, policy models.RFMPolicy) []models.RFMSegment {
	k := policy.Bins
	if k <= 0 {
		k = 5
	}
	n := len(entities)
	rec := make([]float64, n)
	freq := make([]float64, n)
	mon := make([]float64, n)
	het := make([]float64, n)
	for i, e := range entities {
		// Negate so that "higher is better" holds on every dimension.
		rec[i] = -float64(e.Recency)
		freq[i] = float64(e.Frequency)
		mon[i] = e.Monetary
		het[i] = float64(e.Heterogeneity)
	}
	rs, fs, ms, hs := bins(rec, k), bins(freq, k), bins(mon, k), bins(het, k)

	out := make([]models.RFMSegment, 0, n)
	for i, e := range entities {
		s := models.RFMSegment{
			ID:              e.ID,
			AcquisitionDate: e.AcquisitionDate,
			RecencyDate:     e.RecencyDate,
			Recency:         e.Recency,
			Frequency:       e.Frequency,
			Monetary:        e.Monetary,
			Heterogeneity:   e.Heterogeneity,
			Tenure:          e.Tenure,
			R:               rs[i],
			F:               fs[i],
			M:               ms[i],
			H:               hs[i],
		}
		s.RFM = strconv.Itoa(s.R) + strconv.Itoa(s.F) + strconv.Itoa(s.M)
		s.RFMH = s.RFM + strconv.Itoa(s.H)
		s.RFMScore = s.R + s.F + s.M
		s.Segment = policy.Label(s.R, s.F, s.M)
		out = append(out, s)
	}
	return out
}

// bins scores values (higher is better) as ⌊better/n·k⌋+1 where better counts the
// values strictly greater.
func bins(values []float64, k int) []int {
	n := len(values)
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := make([]int, n)
	for i, v := range values {
		// first index with a value > v
		better := n - sort.Search(n, func(j int) bool { return sorted[j] > v })
		b := better*k/n + 1
		if b > k {
			b = k
		}
		out[i] = b
	}
	return out
}

// CustomerRFM scores customers on recency, orders, revenue and distinct SKUs.
func CustomerRFM(customers []models.Customer, policy models.RFMPolicy) []models.RFMSegment {
	in := make([]ScoreInput, 0, len(customers))
	for _, c := range customers {
		in = append(in, ScoreInput{
			ID:              c.CustomerID,
			AcquisitionDate: c.FirstOrderDate,
			RecencyDate:     c.LastOrderDate,
			Recency:         c.Recency,
			Frequency:       c.Orders,
			Monetary:        c.Revenue,
			Heterogeneity:   c.SKUs,
			Tenure:          c.Tenure,
		})
	}
	return Score(in, policy)
}

// ProductRFM scores SKUs on recency, orders, revenue and distinct customers.
func ProductRFM(products []models.Product, policy models.RFMPolicy) []models.RFMSegment {
	in := make([]ScoreInput, 0, len(products))
	for _, p := range products {
		in = append(in, ScoreInput{
			ID:              p.SKU,
			AcquisitionDate: p.FirstOrderDate,
			RecencyDate:     p.LastOrderDate,
			Recency:         p.Recency,
			Frequency:       p.Orders,
			Monetary:        p.Revenue,
			Heterogeneity:   p.Customers,
			Tenure:          p.Tenure,
		})
	}
	return Score(in, policy)
}
