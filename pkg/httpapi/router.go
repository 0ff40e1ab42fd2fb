// Package httpapi exposes the analyses over HTTP: POST a CSV of order lines, get a table back.
package httpapi

import (
	"net/http"

	"ecomtools/pkg/models"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps uploaded CSV bodies.
const maxBodyBytes = 64 << 20

type Handler struct {
	base models.Config
}

// NewHandler serves analyses with base as the default configuration; query parameters
// override it per request.
func NewHandler(base models.Config) *Handler {
	base.Progress = nil
	return &Handler{base: base}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/analyses", handler.listKinds)
		r.Post("/analyses/{kind}", handler.analyze)
	})
	return r
}
