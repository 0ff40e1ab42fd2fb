package segments

import (
	"testing"
	"time"

	"ecomtools/pkg/models"
)

func fiveCustomers() []ScoreInput {
	return []ScoreInput{
		{ID: "a", Recency: 1, Frequency: 10, Monetary: 500, Heterogeneity: 9},
		{ID: "b", Recency: 10, Frequency: 8, Monetary: 400, Heterogeneity: 7},
		{ID: "c", Recency: 30, Frequency: 5, Monetary: 300, Heterogeneity: 5},
		{ID: "d", Recency: 90, Frequency: 2, Monetary: 200, Heterogeneity: 3},
		{ID: "e", Recency: 365, Frequency: 1, Monetary: 100, Heterogeneity: 1},
	}
}

func TestScore_RanksBestFirst(t *testing.T) {
	got := Score(fiveCustomers(), models.DefaultRFMPolicy())
	want := []struct {
		rfmh    string
		score   int
		segment string
	}{
		{"1111", 3, "Star"},
		{"2222", 6, "Loyal"},
		{"3333", 9, "Potential loyal"},
		{"4444", 12, "Hold and improve"},
		{"5555", 15, "Risky"},
	}
	for i, w := range want {
		if got[i].RFMH != w.rfmh || got[i].RFMScore != w.score || got[i].Segment != w.segment {
			t.Fatalf("%s: got %s/%d/%s, want %s/%d/%s", got[i].ID, got[i].RFMH, got[i].RFMScore, got[i].Segment,
				w.rfmh, w.score, w.segment)
		}
		if got[i].RFM != w.rfmh[:3] {
			t.Fatalf("%s: rfm = %s, want %s", got[i].ID, got[i].RFM, w.rfmh[:3])
		}
	}
}

func TestScore_TiesShareBin(t *testing.T) {
	in := []ScoreInput{
		{ID: "a", Recency: 5, Frequency: 1, Monetary: 10},
		{ID: "b", Recency: 5, Frequency: 1, Monetary: 10},
		{ID: "c", Recency: 5, Frequency: 1, Monetary: 10},
		{ID: "d", Recency: 50, Frequency: 3, Monetary: 1},
	}
	got := Score(in, models.RFMPolicy{Bins: 4})
	if got[0].R != got[1].R || got[1].R != got[2].R || got[0].R != 1 {
		t.Fatalf("tied recencies should share bin 1, got %d %d %d", got[0].R, got[1].R, got[2].R)
	}
	if got[3].R != 4 || got[3].F != 1 || got[0].F != 2 {
		t.Fatalf("unexpected bins: %+v", got)
	}
}

func TestScore_Idempotent(t *testing.T) {
	policy := models.DefaultRFMPolicy()
	first := Score(fiveCustomers(), policy)
	again := make([]ScoreInput, 0, len(first))
	for _, s := range first {
		again = append(again, ScoreInput{ID: s.ID, Recency: s.Recency, Frequency: s.Frequency, Monetary: s.Monetary, Heterogeneity: s.Heterogeneity})
	}
	second := Score(again, policy)
	for i := range first {
		if first[i].RFMH != second[i].RFMH || first[i].Segment != second[i].Segment {
			t.Fatalf("rescoring changed %s: %s -> %s", first[i].ID, first[i].RFMH, second[i].RFMH)
		}
	}
}

func TestCustomerRFM_MapsFields(t *testing.T) {
	got := CustomerRFM([]models.Customer{{CustomerID: "x", Orders: 3, Revenue: 60, SKUs: 2, Tenure: 25}}, models.DefaultRFMPolicy())
	if len(got) != 1 || got[0].Frequency != 3 || got[0].Monetary != 60 || got[0].Heterogeneity != 2 || got[0].Tenure != 25 {
		t.Fatalf("unexpected segment: %+v", got)
	}
	if got[0].RFMH != "1111" {
		t.Fatalf("a single entity is its own best, got %s", got[0].RFMH)
	}
}

func TestABC_Thresholds(t *testing.T) {
	in := []ABCInput{
		{ID: "small1", Value: 5},
		{ID: "big", Value: 50},
		{ID: "mid", Value: 30},
		{ID: "ten", Value: 10},
		{ID: "small2", Value: 5},
	}
	got := ABC(in, models.DefaultABCPolicy())
	want := []struct {
		id    string
		class string
		share float64
	}{
		{"big", "A", 50},
		{"mid", "A", 80},
		{"ten", "B", 90},
		{"small1", "C", 95},
		{"small2", "C", 100},
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Class != w.class || got[i].Share != w.share || got[i].Rank != i+1 {
			t.Fatalf("row %d = %+v, want %s %s %v", i, got[i], w.id, w.class, w.share)
		}
	}

	// 2000001/2500001 is 80.0000032%: it displays as 80 but is past the A threshold.
	edge := ABC([]ABCInput{
		{ID: "x", Value: 1000001},
		{ID: "y", Value: 1000000},
		{ID: "z", Value: 500000},
	}, models.DefaultABCPolicy())
	if edge[1].ID != "y" || edge[1].Share != 80 || edge[1].Class != "B" {
		t.Fatalf("boundary row = %+v, want y share 80 class B", edge[1])
	}
}

func TestABC_TopIsAlwaysA(t *testing.T) {
	got := ABC([]ABCInput{{ID: "whale", Value: 95}, {ID: "minnow", Value: 5}}, models.DefaultABCPolicy())
	if got[0].ID != "whale" || got[0].Class != "A" {
		t.Fatalf("top entity should be A, got %+v", got[0])
	}
	if got[1].Class != "C" {
		t.Fatalf("second entity = %s, want C", got[1].Class)
	}
}

func TestABC_Lapsed(t *testing.T) {
	got := ABC([]ABCInput{
		{ID: "gone", Value: 1000, Recency: 400},
		{ID: "active", Value: 10, Recency: 3},
	}, models.DefaultABCPolicy())
	if got[0].ID != "active" || got[0].Class != "A" || got[0].Rank != 1 {
		t.Fatalf("unexpected active row: %+v", got[0])
	}
	if got[1].ID != "gone" || got[1].Class != "D" || got[1].Rank != 2 || got[1].Share != 0 {
		t.Fatalf("unexpected lapsed row: %+v", got[1])
	}
}

func TestCustomerABC_Window(t *testing.T) {
	ref := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []models.TransactionItem{
		{CustomerID: "old", OrderDate: ref.AddDate(-2, 0, 0), LinePrice: 500},
		{CustomerID: "new", OrderDate: ref.AddDate(0, -1, 0), LinePrice: 20},
		{CustomerID: "new", OrderDate: ref.AddDate(-2, 0, 0), LinePrice: 999},
		{CustomerID: "", OrderDate: ref, LinePrice: 1},
	}
	got := CustomerABC(items, ref, models.DefaultABCPolicy())
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].ID != "new" || got[0].Value != 20 || got[0].Class != "A" {
		t.Fatalf("only in-window revenue should count, got %+v", got[0])
	}
	if got[1].ID != "old" || got[1].Class != "D" {
		t.Fatalf("customer without recent orders should be lapsed, got %+v", got[1])
	}
}

func TestProductRFM_MapsFields(t *testing.T) {
	products := []models.Product{
		{SKU: "A", Recency: 0, Orders: 5, Revenue: 100, Customers: 3, Tenure: 40},
		{SKU: "B", Recency: 30, Orders: 1, Revenue: 10, Customers: 1, Tenure: 30},
	}
	got := ProductRFM(products, models.DefaultRFMPolicy())
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	a, b := got[0], got[1]
	if a.ID != "A" || a.Frequency != 5 || a.Monetary != 100 || a.Heterogeneity != 3 || a.Tenure != 40 {
		t.Fatalf("fields not mapped from product: %+v", a)
	}
	if a.RFMH != "1111" || b.RFMH != "3333" {
		t.Fatalf("got %s and %s, want 1111 and 3333", a.RFMH, b.RFMH)
	}
}

func TestProductABC_WindowAndClasses(t *testing.T) {
	ref := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []models.TransactionItem{
		{SKU: "A", CustomerID: "x", OrderDate: ref.AddDate(0, 0, -10), LinePrice: 50},
		{SKU: "A", CustomerID: "", OrderDate: ref.AddDate(0, 0, -5), LinePrice: 30},
		{SKU: "B", CustomerID: "y", OrderDate: ref.AddDate(0, -1, 0), LinePrice: 10},
		{SKU: "C", CustomerID: "y", OrderDate: ref.AddDate(0, -2, 0), LinePrice: 10},
		{SKU: "D", CustomerID: "z", OrderDate: ref.AddDate(-2, 0, 0), LinePrice: 100},
	}
	got := ProductABC(items, ref, models.DefaultABCPolicy())
	want := []struct {
		id    string
		value float64
		class string
		rank  int
	}{
		{"A", 80, "A", 1},
		{"B", 10, "B", 2},
		{"C", 10, "C", 3},
		{"D", 0, "D", 4},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Value != w.value || got[i].Class != w.class || got[i].Rank != w.rank {
			t.Fatalf("row %d = %+v, want %s %v %s %d", i, got[i], w.id, w.value, w.class, w.rank)
		}
	}
}
