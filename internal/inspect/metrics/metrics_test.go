package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReport(t *testing.T) {
	m := New()

	m.ObserveReport()
	m.ObserveReport()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Reports))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Reports, "verity_schema_reports_total"))
}

func TestObserveReportNilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, m.ObserveReport)
}
