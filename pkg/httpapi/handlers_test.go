package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecomtools/pkg/models"
)

const ordersCSV = `order_id,order_date,customer_id,sku,quantity,unit_price
1,2021-01-01 10:00:00,X,A,1,10.00
2,2021-01-11 10:00:00,X,B,2,10.00
3,2021-01-26 10:00:00,X,A,3,10.00
4,2021-02-05 08:00:00,Y,A,1,4.50
`

func newServer() http.Handler {
	return NewRouter(NewHandler(models.DefaultConfig()))
}

func post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") != "abc" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get("X-Request-Id"))
	}
}

func TestAnalyze_Customers(t *testing.T) {
	rec := post(t, "/v1/analyses/customers", ordersCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing generated request id")
	}
	var table tablePayload
	if err := json.Unmarshal(decode(t, rec).Data, &table); err != nil {
		t.Fatalf("invalid table: %v", err)
	}
	if table.Columns[0] != "customer_id" || len(table.Rows) != 2 {
		t.Fatalf("unexpected table: %+v", table)
	}
	if table.Rows[0][0] != "X" || table.Rows[0][1] != float64(60) {
		t.Fatalf("unexpected customer X row: %v", table.Rows[0])
	}
}

func TestAnalyze_CohortsCSV(t *testing.T) {
	rec := post(t, "/v1/analyses/cohorts?period=month&percentage=true&format=csv", ordersCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	want := "acquisition_cohort,0\n2021-01,1\n2021-02,1\n"
	if rec.Body.String() != want {
		t.Fatalf("got %q, want %q", rec.Body.String(), want)
	}
}

func TestAnalyze_Report(t *testing.T) {
	rec := post(t, "/v1/analyses/report?reference=2021-03-01", ordersCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var data struct {
		RunID     string                  `json:"run_id"`
		Reference string                  `json:"reference"`
		Tables    map[string]tablePayload `json:"tables"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &data); err != nil {
		t.Fatalf("invalid report: %v", err)
	}
	if data.RunID == "" || data.Reference != "2021-03-01" || len(data.Tables["latency"].Rows) != 2 {
		t.Fatalf("unexpected report: %+v", data)
	}
}

func TestAnalyze_ReportAbsentCohortCellIsNull(t *testing.T) {
	body := ordersCSV + "5,2021-02-10 09:00:00,X,B,1,5.00\n"
	rec := post(t, "/v1/analyses/report", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var data struct {
		Tables map[string]tablePayload `json:"tables"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &data); err != nil {
		t.Fatalf("invalid report: %v", err)
	}
	cohorts := data.Tables["cohorts"]
	if len(cohorts.Rows) != 2 || len(cohorts.Rows[1]) != 3 {
		t.Fatalf("unexpected cohorts table: %+v", cohorts)
	}
	if cohorts.Rows[0][2] != float64(1) {
		t.Fatalf("2021-01 offset 1 = %#v, want 1", cohorts.Rows[0][2])
	}
	if cohorts.Rows[1][2] != nil {
		t.Fatalf("2021-02 offset 1 should be null, got %#v", cohorts.Rows[1][2])
	}
}

func TestAnalyze_Errors(t *testing.T) {
	cases := []struct {
		name string
		path string
		body string
		want int
		code string
	}{
		{"unknown kind", "/v1/analyses/churn", ordersCSV, http.StatusNotFound, "UNKNOWN_ANALYSIS"},
		{"bad period", "/v1/analyses/cohorts?period=fortnight", ordersCSV, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"bad bins", "/v1/analyses/rfm?bins=0", ordersCSV, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"bad reference", "/v1/analyses/customers?reference=soon", ordersCSV, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"missing column", "/v1/analyses/customers", "order_id,sku\n1,A\n", http.StatusUnprocessableEntity, "SCHEMA_ERROR"},
		{"empty body", "/v1/analyses/customers", "", http.StatusUnprocessableEntity, "EMPTY_INPUT"},
		{"header only", "/v1/analyses/customers", "order_id,order_date,customer_id,sku,quantity,unit_price\n", http.StatusUnprocessableEntity, "EMPTY_INPUT"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := post(t, c.path, c.body)
			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, c.want, rec.Body.String())
			}
			if env := decode(t, rec); env.Status != "error" || env.Code != c.code {
				t.Fatalf("unexpected error payload: %+v", env)
			}
		})
	}
}
