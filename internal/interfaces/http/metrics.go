package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds the Prometheus metrics for the analysis server.
type MetricsRegistry struct {
	RequestDuration *prometheus.HistogramVec
	AnalysisTotal   *prometheus.CounterVec
	AnalysisErrors  *prometheus.CounterVec
	ActiveBacktests prometheus.Gauge
	BacktestsTotal  prometheus.Counter

	registry *prometheus.Registry
}

// NewMetricsRegistry creates a registry with all server metrics registered.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "status"},
		),
		AnalysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_analyses_total",
				Help: "Total number of analyses served by type",
			},
			[]string{"analysis"},
		),
		AnalysisErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_analysis_errors_total",
				Help: "Total number of failed analyses by type and error kind",
			},
			[]string{"analysis", "kind"},
		),
		ActiveBacktests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_active_backtests",
				Help: "Number of currently running backtests",
			},
		),
		BacktestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "folio_backtests_total",
				Help: "Total number of backtests started",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RequestDuration,
		m.AnalysisTotal,
		m.AnalysisErrors,
		m.ActiveBacktests,
		m.BacktestsTotal,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
