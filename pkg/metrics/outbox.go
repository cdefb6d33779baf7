package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics records publisher results per sink.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	deadLet   *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartflow_outbox_published_total",
		Help: "Outbox events delivered to the sink.",
	}, []string{"sink", "event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartflow_outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed and will be retried.",
	}, []string{"sink", "event_type"})
	deadLet := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cartflow_outbox_dead_lettered_total",
		Help: "Outbox events moved to the DLQ.",
	}, []string{"reason"})
	reg.MustRegister(published, failed, deadLet)
	return &OutboxMetrics{published: published, failed: failed, deadLet: deadLet}
}

func (m *OutboxMetrics) IncPublished(sink, eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(sink, "unknown"), normalizeLabel(eventType, "unknown")).Inc()
}

func (m *OutboxMetrics) IncFailed(sink, eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(sink, "unknown"), normalizeLabel(eventType, "unknown")).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLet == nil {
		return
	}
	m.deadLet.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}
