package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for schema readiness reports.
type Metrics struct {
	Reports prometheus.Counter
}

// New creates and registers inspection metrics.
func New() *Metrics {
	return &Metrics{
		Reports: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_schema_reports_total",
			Help: "Total number of schema readiness reports generated",
		}),
	}
}

// ObserveReport records one generated report.
func (m *Metrics) ObserveReport() {
	if m == nil {
		return
	}
	m.Reports.Inc()
}
