// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the Prometheus collectors of the commission engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	CommissionsCreated  prometheus.Counter
	CommissionAmount    prometheus.Counter
	AdjustmentsDecided  *prometheus.CounterVec
	DisputeTransitions  *prometheus.CounterVec
	PayoutsSettled      prometheus.Counter
	PayoutAmount        prometheus.Counter
	AnalyticsRollups    *prometheus.CounterVec
	DashboardCacheReads *prometheus.CounterVec
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CommissionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "commissions_created_total",
			Help: "Total number of commission records created",
		}),
		CommissionAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "commission_amount_created_total",
			Help: "Sum of commission amounts rated at creation",
		}),
		AdjustmentsDecided: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_adjustments_decided_total",
				Help: "Adjustments moved out of pending, by outcome",
			},
			[]string{"outcome"},
		),
		DisputeTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revenue_dispute_transitions_total",
				Help: "Dispute status transitions, by target status",
			},
			[]string{"status"},
		),
		PayoutsSettled: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendor_payouts_settled_total",
			Help: "Total number of vendor payouts settled",
		}),
		PayoutAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendor_payout_amount_total",
			Help: "Sum of settled payout amounts",
		}),
		AnalyticsRollups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_analytics_rollups_total",
				Help: "Daily analytics rollups, by result",
			},
			[]string{"result"},
		),
		DashboardCacheReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_stats_cache_reads_total",
				Help: "Dashboard stats cache lookups, by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) CommissionCreated(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.CommissionsCreated.Inc()
	f, _ := amount.Float64()
	m.CommissionAmount.Add(f)
}

func (m *Metrics) AdjustmentDecided(outcome string) {
	if m == nil {
		return
	}
	m.AdjustmentsDecided.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DisputeTransitioned(status string) {
	if m == nil {
		return
	}
	m.DisputeTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) PayoutSettled(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.PayoutsSettled.Inc()
	f, _ := amount.Float64()
	m.PayoutAmount.Add(f)
}

func (m *Metrics) AnalyticsRolledUp(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.AnalyticsRollups.WithLabelValues(result).Inc()
}

func (m *Metrics) DashboardCacheRead(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DashboardCacheReads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
