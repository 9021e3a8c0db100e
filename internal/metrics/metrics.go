// Package metrics exposes Prometheus collectors for the harvest service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestTasksTotal          *prometheus.CounterVec
	harvestNotesTotal          *prometheus.CounterVec
	harvestActiveTasks         prometheus.Gauge
	harvestExportsTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvestTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_tasks_total",
				Help: "Total number of harvest tasks finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		harvestNotesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_notes_total",
				Help: "Total number of note extractions attempted, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		harvestActiveTasks = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvest_active_tasks",
				Help: "Number of tasks currently running.",
			},
		)

		harvestExportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_exports_total",
				Help: "Total number of comment exports served, labeled by format.",
			},
			[]string{"format"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTask increments the finished-task counter for the given status.
func ObserveTask(status string) {
	harvestTasksTotal.WithLabelValues(status).Inc()
}

// ObserveNote records one note extraction attempt outcome.
func ObserveNote(outcome string) {
	harvestNotesTotal.WithLabelValues(outcome).Inc()
}

// IncActiveTasks increments the running-task gauge.
func IncActiveTasks() {
	harvestActiveTasks.Inc()
}

// DecActiveTasks decrements the running-task gauge.
func DecActiveTasks() {
	harvestActiveTasks.Dec()
}

// ObserveExport increments the export counter for the given format.
func ObserveExport(format string) {
	harvestExportsTotal.WithLabelValues(format).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
