package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	requestsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tallerbot",
			Name:      "requests_submitted_total",
			Help:      "Count of booking form submissions by result.",
		},
		[]string{"result"},
	)

	webhookDelivery = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tallerbot",
			Name:      "webhook_delivery_total",
			Help:      "Count of webhook delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	slotLookups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tallerbot",
			Name:      "slot_lookups_total",
			Help:      "Count of slot list generations requested by users.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requestsSubmitted, webhookDelivery, slotLookups)
	})
}

func IncRequestSubmitted(result string) {
	requestsSubmitted.WithLabelValues(result).Inc()
}

func IncWebhookDelivery(outcome string) {
	webhookDelivery.WithLabelValues(outcome).Inc()
}

func IncSlotLookup() {
	slotLookups.Inc()
}
