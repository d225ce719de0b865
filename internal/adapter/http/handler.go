package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"log/slog"

	"adserver/internal/core/port"
	"adserver/internal/metrics"
)

// Handler contains dependencies and routes. It is an inbound adapter for HTTP.
// It holds the decision use case to execute business logic and a logger for
// structured logging. Routes are registered on a chi.Router for convenient
// method handling.
type Handler struct {
	svc    port.AdDecisionUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured. It accepts a
// use case implementation, a logger and the metrics registry. The returned
// Handler registers handlers for each endpoint on a new chi.Router.
func NewHandler(svc port.AdDecisionUseCase, logger *slog.Logger, m *metrics.Metrics) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/decision", h.handleDecision)
		r.Get("/click/{offer_id}", h.handleClick)
		r.Get("/view/{offer_id}", h.handleView)
		r.Get("/stats/overview", h.handleStatsOverview)
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}
