// Package metrics holds the Prometheus collectors of the hostel service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hostel"

// Metrics groups the collectors. Each instance owns its registry so
// several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDurationMs      *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
	Rejections          *prometheus.CounterVec
	StoreOperations     *prometheus.CounterVec
	StoreDurationMs     *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
	LedgerSyncs         *prometheus.CounterVec
	ReconcileDurationMs prometheus.Histogram
}

// New registers every metric on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "View cache lookups by cache name and result",
		}, []string{"cache", "result"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Mutations refused by a business guard",
		}, []string{"reason"}),
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Record store calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		StoreDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_ms",
			Help:      "Record store latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
		}, []string{"operation"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Change events published by type and outcome",
		}, []string{"type", "outcome"}),
		LedgerSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_syncs_total",
			Help:      "Ledger rows written or removed by the worker",
		}, []string{"action", "outcome"}),
		ReconcileDurationMs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_reconcile_duration_ms",
			Help:      "Duration of a month reconciliation in milliseconds",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
