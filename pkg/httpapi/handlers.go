package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecomtools/pkg/calculator"
	"ecomtools/pkg/models"
	"ecomtools/pkg/period"
	"ecomtools/pkg/tableio"

	"github.com/go-chi/chi/v5"
)

const kindReport = "report"

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ok"})
}

func (h *Handler) listKinds(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, append(append([]string{}, calculator.Kinds...), kindReport))
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	stats := analysisFromContext(r.Context())
	stats.kind = kind
	fail := func(err error) {
		status, code := mapError(err)
		if status >= 500 {
			httpLogger().ErrorContext(r.Context(), "analysis failed", "kind", kind, "error", err.Error(),
				"request_id", requestIDFromContext(r.Context()))
		}
		writeError(w, status, code, err.Error())
	}

	if kind != kindReport && !calculator.KnownKind(kind) {
		fail(fmt.Errorf("%w %q", calculator.ErrUnknownKind, kind))
		return
	}
	cfg, err := h.configFromQuery(r)
	if err != nil {
		fail(err)
		return
	}
	raw, err := tableio.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		fail(err)
		return
	}

	if kind == kindReport {
		report, err := calculator.Run(r.Context(), raw, cfg)
		if err != nil {
			fail(err)
			return
		}
		stats.runID = report.RunID
		tables := make(map[string]tablePayload)
		for _, nt := range report.Tables() {
			payload := newTablePayload(nt.Table)
			stats.rows += len(payload.Rows)
			tables[nt.Name] = payload
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"run_id":    report.RunID,
			"reference": report.Reference.Format("2006-01-02"),
			"items":     report.Items,
			"tables":    tables,
		})
		return
	}

	table, err := calculator.RunKind(r.Context(), raw, cfg, kind)
	if err != nil {
		fail(err)
		return
	}
	payload := newTablePayload(table)
	stats.rows = len(payload.Rows)
	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		_ = tableio.WriteCSV(w, table)
		return
	}
	writeSuccess(w, http.StatusOK, payload)
}

// configFromQuery overrides the base config with period, measure, percentage, reference,
// bins, months, days and due_soon query parameters.
func (h *Handler) configFromQuery(r *http.Request) (models.Config, error) {
	cfg := h.base
	q := r.URL.Query()
	bad := func(name string, err error) error {
		return fmt.Errorf("%w: %s: %v", models.ErrInvalidConfig, name, err)
	}

	if v := q.Get("period"); v != "" {
		p, err := period.Parse(v)
		if err != nil {
			return cfg, bad("period", err)
		}
		cfg.Period = p
	}
	if v := q.Get("measure"); v != "" {
		v = strings.ToLower(v)
		if v != models.MeasureCustomers && v != models.MeasureRevenue {
			return cfg, bad("measure", fmt.Errorf("want customers or revenue"))
		}
		cfg.Measure = v
	}
	if v := q.Get("percentage"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, bad("percentage", err)
		}
		cfg.Percentage = b
	}
	if v := q.Get("reference"); v != "" {
		ref, err := calculator.ParseReference(v)
		if err != nil {
			return cfg, err
		}
		cfg.Reference = ref
	}
	ints := []struct {
		name string
		dst  *int
		min  int
	}{
		{"bins", &cfg.RFM.Bins, 1},
		{"months", &cfg.ABC.Months, 0},
		{"days", &cfg.ProductDays, 0},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, bad(p.name, err)
		}
		if n < p.min {
			return cfg, bad(p.name, fmt.Errorf("must be at least %d", p.min))
		}
		*p.dst = n
	}
	if v := q.Get("due_soon"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, bad("due_soon", err)
		}
		cfg.DueSoonDays = d
	}
	return cfg, nil
}

// Server wraps the router with the timeouts used in production.
func Server(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}
}
