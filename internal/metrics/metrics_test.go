package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecording(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CommissionCreated(decimal.NewFromInt(100))
	m.CommissionCreated(decimal.NewFromFloat(20.5))
	m.AdjustmentDecided("approved")
	m.AnalyticsRolledUp(errors.New("boom"))
	m.DashboardCacheRead(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommissionsCreated))
	assert.Equal(t, 120.5, testutil.ToFloat64(m.CommissionAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdjustmentsDecided.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyticsRollups.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardCacheReads.WithLabelValues("hit")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CommissionCreated(decimal.NewFromInt(1))
		m.AdjustmentDecided("rejected")
		m.PayoutSettled(decimal.NewFromInt(1))
		m.ObserveHTTP("GET", "/health", "200", 0.01)
	})
}
