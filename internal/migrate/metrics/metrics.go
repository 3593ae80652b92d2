package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the migration runner.
type Metrics struct {
	Applied     prometheus.Counter
	Failures    prometheus.Counter
	RunDuration prometheus.Histogram
}

// New creates and registers migration metrics.
func New() *Metrics {
	return &Metrics{
		Applied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_migrations_applied_total",
			Help: "Total number of migrations applied to the database",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_migration_failures_total",
			Help: "Total number of migration runs that ended in error",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_migration_duration_seconds",
			Help:    "Duration of full migration runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}
}

// ObserveRun records one run outcome.
func (m *Metrics) ObserveRun(applied int, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.Applied.Add(float64(applied))
	m.RunDuration.Observe(duration.Seconds())
	if failed {
		m.Failures.Inc()
	}
}
