package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"ecomtools/pkg/calculator"
	"ecomtools/pkg/models"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// tablePayload is the JSON shape of a result table. Rows keep typed cells; absent
// values encode as null.
type tablePayload struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func newTablePayload(t models.Table) tablePayload {
	rows := t.Values()
	if rows == nil {
		rows = [][]any{}
	}
	return tablePayload{Columns: t.Header(), Rows: rows}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, calculator.ErrUnknownKind):
		return http.StatusNotFound, "UNKNOWN_ANALYSIS"
	case errors.Is(err, models.ErrSchema):
		return http.StatusUnprocessableEntity, "SCHEMA_ERROR"
	case errors.Is(err, models.ErrEmptyInput):
		return http.StatusUnprocessableEntity, "EMPTY_INPUT"
	case errors.Is(err, models.ErrInvalidConfig):
		return http.StatusBadRequest, "INVALID_PARAMETER"
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
