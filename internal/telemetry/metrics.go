// Package telemetry carries the ambient logging and metrics plumbing shared by
// the dashboard, the snapshot command and the mock server.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tick outcomes.
const (
	OutcomeApplied     = "applied"
	OutcomeStale       = "stale"
	OutcomeFetchError  = "fetch_error"
	OutcomeDecodeError = "decode_error"
)

// Metrics uses its own registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks         *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	entities      prometheus.Gauge
	created       prometheus.Counter
	removed       prometheus.Counter
	samples       prometheus.Counter
	mockRequests  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifiwatch_ticks_total",
			Help: "Poll ticks by outcome.",
		}, []string{"outcome"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wifiwatch_fetch_duration_seconds",
			Help:    "Time spent fetching the client list.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		entities: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wifiwatch_entities",
			Help: "Clients currently rendered.",
		}),
		created: factory.NewCounter(prometheus.CounterOpts{
			Name: "wifiwatch_entities_created_total",
			Help: "Client cards created.",
		}),
		removed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wifiwatch_entities_removed_total",
			Help: "Client cards removed after disappearing from a tick.",
		}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "wifiwatch_history_samples_total",
			Help: "Signal samples appended to client history.",
		}),
		mockRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifiwatch_mock_requests_total",
			Help: "Requests served by the mock endpoint.",
		}, []string{"status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	if err != nil {
		m.ticks.WithLabelValues(OutcomeFetchError).Inc()
	}
}

func (m *Metrics) ObserveTick(outcome string) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(outcome).Inc()
}

// ObserveReconcile records an applied tick.
func (m *Metrics) ObserveReconcile(created, removed, samples, total int) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(OutcomeApplied).Inc()
	m.created.Add(float64(created))
	m.removed.Add(float64(removed))
	m.samples.Add(float64(samples))
	m.entities.Set(float64(total))
}

func (m *Metrics) ObserveMockRequest(status string) {
	if m == nil {
		return
	}
	m.mockRequests.WithLabelValues(status).Inc()
}
