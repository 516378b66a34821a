package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Probe results used as label values.
const (
	ResultHealthy   = "healthy"
	ResultUnhealthy = "unhealthy"
)

// HealthMetrics contains Prometheus metrics for the health-check engine.
type HealthMetrics struct {
	ProbeTotal    *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
	DependencyUp  *prometheus.GaugeVec
	ReportsTotal  *prometheus.CounterVec
}

// NewHealthMetrics creates and registers health metrics with the given registerer.
func NewHealthMetrics(registerer prometheus.Registerer) *HealthMetrics {
	metrics := &HealthMetrics{
		ProbeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthd_probe_total",
				Help: "Total number of dependency probes",
			},
			[]string{"dependency", "result"}, // result: healthy/unhealthy
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "healthd_probe_duration_seconds",
				Help:    "Time spent probing a dependency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"dependency"},
		),
		DependencyUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "healthd_dependency_up",
				Help: "Whether the last probe of a dependency succeeded (1) or failed (0)",
			},
			[]string{"dependency"},
		),
		ReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthd_reports_total",
				Help: "Total number of health reports served",
			},
			[]string{"status"}, // status: ok/degraded
		),
	}

	registerer.MustRegister(
		metrics.ProbeTotal,
		metrics.ProbeDuration,
		metrics.DependencyUp,
		metrics.ReportsTotal,
	)

	return metrics
}

// ObserveProbe records the outcome of a single probe.
func (m *HealthMetrics) ObserveProbe(dependency string, healthy bool, duration time.Duration) {
	result := ResultUnhealthy
	up := 0.0
	if healthy {
		result = ResultHealthy
		up = 1
	}

	m.ProbeTotal.WithLabelValues(dependency, result).Inc()
	m.ProbeDuration.WithLabelValues(dependency).Observe(duration.Seconds())
	m.DependencyUp.WithLabelValues(dependency).Set(up)
}

// ObserveReport counts a served report by its overall status.
func (m *HealthMetrics) ObserveReport(status string) {
	m.ReportsTotal.WithLabelValues(status).Inc()
}
