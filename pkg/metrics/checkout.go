package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// OrderMetrics records checkout and lifecycle outcomes.
type OrderMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	unitsReserved    prometheus.Counter
	unitsReleased    prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cartflow_checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartflow_checkouts_total",
		Help: "Checkout attempts partitioned by outcome and error code.",
	}, []string{"outcome", "code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartflow_order_transitions_total",
		Help: "Order status transitions applied.",
	}, []string{"from", "to"})
	unitsReserved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cartflow_inventory_units_reserved_total",
		Help: "Inventory units reserved by checkout.",
	})
	unitsReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cartflow_inventory_units_released_total",
		Help: "Inventory units released by cancellation.",
	})
	reg.MustRegister(checkoutDuration, checkouts, transitions, unitsReserved, unitsReleased)
	return &OrderMetrics{
		checkoutDuration: checkoutDuration,
		checkouts:        checkouts,
		transitions:      transitions,
		unitsReserved:    unitsReserved,
		unitsReleased:    unitsReleased,
	}
}

// ObserveCheckout records one checkout attempt. code is empty on success.
func (m *OrderMetrics) ObserveCheckout(code string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	outcome := OutcomeSuccess
	if code != "" {
		outcome = OutcomeFailure
	}
	m.checkouts.WithLabelValues(outcome, normalizeLabel(code, "none")).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncTransition counts a status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from, "unknown"), normalizeLabel(to, "unknown")).Inc()
}

func (m *OrderMetrics) AddReserved(units int) {
	if m == nil || m.unitsReserved == nil || units <= 0 {
		return
	}
	m.unitsReserved.Add(float64(units))
}

func (m *OrderMetrics) AddReleased(units int) {
	if m == nil || m.unitsReleased == nil || units <= 0 {
		return
	}
	m.unitsReleased.Add(float64(units))
}

func normalizeLabel(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
