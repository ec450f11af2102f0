package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts gateway notification outcomes per transaction status.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	duplicates prometheus.Counter
	rejected   prometheus.Counter
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_received",
		Help: "Gateway notifications processed, by transaction status.",
	}, []string{"transaction_status"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_notifications_duplicate",
		Help: "Notifications skipped because the transaction was already processed.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_notifications_rejected",
		Help: "Notifications rejected before processing (bad signature or unknown payment).",
	})
	reg.MustRegister(received, duplicates, rejected)
	return &WebhookMetrics{
		received:   received,
		duplicates: duplicates,
		rejected:   rejected,
	}
}

// IncReceived counts a processed notification for the given status.
func (w *WebhookMetrics) IncReceived(status string) {
	if w == nil || w.received == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	w.received.WithLabelValues(status).Inc()
}

// IncDuplicate counts a duplicate notification.
func (w *WebhookMetrics) IncDuplicate() {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.Inc()
}

// IncRejected counts a rejected notification.
func (w *WebhookMetrics) IncRejected() {
	if w == nil || w.rejected == nil {
		return
	}
	w.rejected.Inc()
}
