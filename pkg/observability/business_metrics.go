package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook events received, by type and outcome",
	}, []string{
		"event_type",
		"outcome", // handled, ignored, rejected, failed
	})

	paymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Ledger entries recorded from gateway events",
	}, []string{
		"kind",   // rent, application_fee, security_deposit
		"status", // pending, completed, failed
	})

	paymentAmountCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_cents_total",
		Help: "Gross payment volume in minor units",
	}, []string{
		"kind",
		"currency",
	})

	payoutTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transitions_total",
		Help: "Payout request state transitions",
	}, []string{
		"to_status", // pending, approved, rejected, processed
	})

	escrowReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_releases_total",
		Help: "Escrow entries released to the available balance",
	})

	transferAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_attempts_total",
		Help: "External transfer executions, by method and outcome",
	}, []string{
		"method", // bank_transfer, stripe_connect
		"status", // success, failure
	})
)

// RecordWebhookEvent counts one received gateway event.
// Outcome is one of handled, ignored, rejected, failed.
func RecordWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordPayment counts one recorded ledger entry and its gross volume
func RecordPayment(kind, status, currency string, amountCents int64) {
	paymentsRecordedTotal.WithLabelValues(kind, status).Inc()
	if amountCents > 0 {
		paymentAmountCents.WithLabelValues(kind, currency).Add(float64(amountCents))
	}
}

// RecordPayoutTransition counts one payout request state change
func RecordPayoutTransition(toStatus string) {
	payoutTransitionsTotal.WithLabelValues(toStatus).Inc()
}

// RecordEscrowRelease counts one escrow release
func RecordEscrowRelease() {
	escrowReleasesTotal.Inc()
}

// RecordTransferAttempt counts one external transfer execution
func RecordTransferAttempt(method, status string) {
	transferAttemptsTotal.WithLabelValues(method, status).Inc()
}
