// Package metrics exposes Prometheus instrumentation for the ad server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the serving-path collectors. Outcome/reason label values
// are low-cardinality machine codes, never raw request data.
type Metrics struct {
	registry *prometheus.Registry

	decisions *prometheus.CounterVec
	offers    prometheus.Counter
	clicks    *prometheus.CounterVec
	views     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adserver_decisions_total",
			Help: "Ad decisions by outcome (offered, sticky, none, error).",
		}, []string{"outcome"}),
		offers: factory.NewCounter(prometheus.CounterOpts{
			Name: "adserver_offers_total",
			Help: "Offers recorded, including null offers.",
		}),
		clicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adserver_clicks_total",
			Help: "Click callbacks by result (billed or a rejection reason).",
		}, []string{"result"}),
		views: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adserver_views_total",
			Help: "View callbacks by result (billed or a rejection reason).",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordOffer() {
	if m == nil {
		return
	}
	m.offers.Inc()
}

func (m *Metrics) RecordClick(result string) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordView(result string) {
	if m == nil {
		return
	}
	m.views.WithLabelValues(result).Inc()
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
