package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Confirmation outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// CheckoutMetrics records session building and order materialization.
type CheckoutMetrics struct {
	sessions      *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	retries       prometheus.Counter
	ordersCreated prometheus.Counter
	confirmTime   *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout session build attempts by result code.",
	}, []string{"result"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_confirmations_total",
		Help: "Payment confirmations by outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_materialization_retries_total",
		Help: "Order materialization transactions retried after a transient store failure.",
	})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Vendor orders persisted from confirmed sessions.",
	})
	confirmTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_confirmation_duration_seconds",
		Help:    "Time spent materializing orders for a payment confirmation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(sessions, confirmations, retries, ordersCreated, confirmTime)
	return &CheckoutMetrics{
		sessions:      sessions,
		confirmations: confirmations,
		retries:       retries,
		ordersCreated: ordersCreated,
		confirmTime:   confirmTime,
	}
}

// IncSession counts a session build attempt. result is "ok" or an error code.
func (m *CheckoutMetrics) IncSession(result string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveConfirmation counts a confirmation outcome and its latency.
func (m *CheckoutMetrics) ObserveConfirmation(outcome string, duration time.Duration) {
	if m == nil || m.confirmations == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.confirmations.WithLabelValues(outcome).Inc()
	m.confirmTime.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *CheckoutMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

func (m *CheckoutMetrics) AddOrdersCreated(n int) {
	if m == nil || m.ordersCreated == nil || n <= 0 {
		return
	}
	m.ordersCreated.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
