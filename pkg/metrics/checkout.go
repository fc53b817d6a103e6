package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/papelisco/storefront/pkg/pricing"
)

// Checkout outcomes.
const (
	CheckoutPlaced   = "placed"
	CheckoutRejected = "rejected"
	CheckoutFailed   = "failed"
)

// CheckoutMetrics tracks order placement.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	totals   prometheus.Histogram
}

// NewCheckoutMetrics registers checkout metrics on reg.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	totals := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_order_total_dollars",
		Help:    "Grand total of placed orders.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
	})
	reg.MustRegister(attempts, totals)
	return &CheckoutMetrics{attempts: attempts, totals: totals}
}

// Placed counts a successful order and records its total.
func (m *CheckoutMetrics) Placed(total pricing.Cents) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(CheckoutPlaced).Inc()
	f, _ := total.Decimal().Float64()
	m.totals.Observe(f)
}

// Outcome counts a non-successful attempt.
func (m *CheckoutMetrics) Outcome(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}
