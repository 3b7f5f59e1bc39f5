// Package metrics exposes Prometheus collectors for the weekly pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "weeklytop"

	// Run outcomes.
	OutcomeSuccess      = "success"
	OutcomeEmpty        = "empty"
	OutcomePersistError = "persist_error"
)

// Manager owns every collector. All methods are safe on a nil receiver so
// components can run without metrics in tests.
type Manager struct {
	registry *prometheus.Registry

	runs                *prometheus.CounterVec
	runDuration         prometheus.Histogram
	sourceFailures      *prometheus.CounterVec
	extractions         *prometheus.CounterVec
	candidates          prometheus.Gauge
	ranked              prometheus.Gauge
	enrichmentAttempts  prometheus.Counter
	enrichmentFailures  *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager registers collectors on a fresh registry.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall time of a full pipeline run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		sourceFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Sources skipped because fetching or scanning failed.",
		}, []string{"source"}),
		extractions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Album mentions extracted per source.",
		}, []string{"source"}),
		candidates: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidates",
			Help:      "Distinct candidates after merging in the last run.",
		}),
		ranked: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ranked_items",
			Help:      "Items in the last published list.",
		}),
		enrichmentAttempts: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_attempts_total",
			Help:      "Calls made to the text-generation service.",
		}),
		enrichmentFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Enrichment batches that degraded to empty text.",
		}, []string{"reason"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished run by outcome and observes its duration.
func (m *Manager) RecordRun(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(took.Seconds())
}

// RecordSourceFailure counts a source skipped during collection.
func (m *Manager) RecordSourceFailure(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

// RecordExtractions adds the mentions one source produced.
func (m *Manager) RecordExtractions(source string, n int) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(source).Add(float64(n))
}

// SetCandidates reports distinct candidates after merging.
func (m *Manager) SetCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Set(float64(n))
}

// SetRanked reports the size of the published list.
func (m *Manager) SetRanked(n int) {
	if m == nil {
		return
	}
	m.ranked.Set(float64(n))
}

// RecordEnrichmentAttempt counts one call to the text-generation service.
func (m *Manager) RecordEnrichmentAttempt() {
	if m == nil {
		return
	}
	m.enrichmentAttempts.Inc()
}

// RecordEnrichmentFailure counts a batch published without text, by reason.
func (m *Manager) RecordEnrichmentFailure(reason string) {
	if m == nil {
		return
	}
	m.enrichmentFailures.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest counts a served request and observes its latency.
func (m *Manager) RecordHTTPRequest(route, method, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(took.Seconds())
}

// EnrichmentAttempts exposes the attempt counter for assertions.
func (m *Manager) EnrichmentAttempts() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.enrichmentAttempts
}
