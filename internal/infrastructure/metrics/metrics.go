// Package metrics exposes Prometheus collectors for the analysis pipeline and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodlog"

// Metrics holds the collectors registered on its own registry
type Metrics struct {
	registry *prometheus.Registry

	stageDuration        *prometheus.HistogramVec
	runsTotal            *prometheus.CounterVec
	searchFailures       prometheus.Counter
	consistencyCorrected prometheus.Counter
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 90},
			},
			[]string{"stage", "status"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of pipeline invocations",
			},
			[]string{"status"},
		),
		searchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_failures_total",
				Help:      "Total number of failed food-facts searches",
			},
		),
		consistencyCorrected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consistency_corrections_total",
				Help:      "Total number of enriched totals recomputed from per-unit values",
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveStage records the duration and outcome of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage, status(err)).Observe(elapsed.Seconds())
}

// ObserveRun counts one pipeline invocation.
func (m *Metrics) ObserveRun(_ time.Duration, err error) {
	m.runsTotal.WithLabelValues(status(err)).Inc()
}

// SearchFailed counts one failed food-facts search.
func (m *Metrics) SearchFailed() {
	m.searchFailures.Inc()
}

// ConsistencyCorrected counts one recomputed enriched total.
func (m *Metrics) ConsistencyCorrected() {
	m.consistencyCorrected.Inc()
}

// ObserveHTTP records one served request. path is the route template.
func (m *Metrics) ObserveHTTP(method, path string, statusCode int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
