// Package metrics defines the Prometheus metric collectors used by the trip
// analytics service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	ToolInvocationsTotal  *prometheus.CounterVec
	ToolLatency           *prometheus.HistogramVec
	RoutingDecisionsTotal *prometheus.CounterVec
	ResultRows            prometheus.Histogram
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	TripTableRows         prometheus.Gauge
	RejectedRows          prometheus.Gauge
	IndexedDocuments      prometheus.Gauge
	IndexDegraded         prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ToolInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_invocations_total",
				Help: "Total tool invocations by tool name and outcome (ok, invalid, empty, error).",
			},
			[]string{"tool", "outcome"},
		),
		ToolLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_latency_seconds",
				Help:    "Tool execution latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"tool"},
		),
		RoutingDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routing_decisions_total",
				Help: "Query router classifications by route (lexical, numeric, hybrid, degraded).",
			},
			[]string{"route"},
		),
		ResultRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "result_rows",
				Help:    "Number of trip rows returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		TripTableRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trip_table_rows",
				Help: "Number of validated trips held in the in-memory table.",
			},
		),
		RejectedRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trip_table_rejected_rows",
				Help: "Number of source rows rejected during load-time validation.",
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lexical_index_documents",
				Help: "Number of trip documents held by the lexical index.",
			},
		),
		IndexDegraded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lexical_index_degraded",
				Help: "1 when the lexical index failed to build and routing is numeric-only.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ToolInvocationsTotal,
		m.ToolLatency,
		m.RoutingDecisionsTotal,
		m.ResultRows,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.TripTableRows,
		m.RejectedRows,
		m.IndexedDocuments,
		m.IndexDegraded,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
