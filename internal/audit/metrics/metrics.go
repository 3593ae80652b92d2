package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit outbox pipeline.
type Metrics struct {
	OutboxDepth prometheus.Gauge
	Published   prometheus.Counter
}

// New creates and registers outbox metrics.
func New() *Metrics {
	return &Metrics{
		OutboxDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "verity_audit_outbox_depth",
			Help: "Unpublished audit events waiting in the outbox",
		}),
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_events_published_total",
			Help: "Total number of audit events delivered to the broker",
		}),
	}
}

// ObserveDrain records one drain pass.
func (m *Metrics) ObserveDrain(depth, published int) {
	if m == nil {
		return
	}
	m.OutboxDepth.Set(float64(depth))
	m.Published.Add(float64(published))
}
