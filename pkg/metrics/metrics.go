// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	JobRunsTotal         *prometheus.CounterVec
	JobDuration          *prometheus.HistogramVec
	KeywordsMonitored    prometheus.Counter
	SurgesDetected       prometheus.Counter
	ContentGenerated     *prometheus.CounterVec
	APICallsTotal        *prometheus.CounterVec
	APIBudgetRemaining   *prometheus.GaugeVec
	QueueDepth           prometheus.Gauge
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
		JobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_runs_total",
				Help: "Total scheduled job runs by job name and outcome (success, failure, skipped).",
			},
			[]string{"job", "outcome"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scheduler_job_duration_seconds",
				Help:    "Job run duration in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"job"},
		),
		KeywordsMonitored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keywords_monitored_total",
				Help: "Total keyword volume checks committed to the store.",
			},
		),
		SurgesDetected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keyword_surges_detected_total",
				Help: "Total surge-qualified volume updates.",
			},
		),
		ContentGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_generated_total",
				Help: "Content pipeline outcomes by reason and status.",
			},
			[]string{"reason", "status"},
		),
		APICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_calls_total",
				Help: "External API calls by api name and outcome.",
			},
			[]string{"api", "outcome"},
		),
		APIBudgetRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "api_budget_remaining",
				Help: "Remaining daily budget per external API.",
			},
			[]string{"api"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "content_queue_depth",
				Help: "Entries in the most recently built content queue.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.JobRunsTotal,
		m.JobDuration,
		m.KeywordsMonitored,
		m.SurgesDetected,
		m.ContentGenerated,
		m.APICallsTotal,
		m.APIBudgetRemaining,
		m.QueueDepth,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
