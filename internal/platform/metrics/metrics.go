package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds service-level Prometheus metrics.
type Metrics struct {
	BuildInfo *prometheus.GaugeVec
}

// New creates and registers service-level metrics.
func New(version string) *Metrics {
	m := &Metrics{
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "verity_build_info",
			Help: "Build information for the running verity binary",
		}, []string{"version"}),
	}
	m.BuildInfo.WithLabelValues(version).Set(1)
	return m
}
