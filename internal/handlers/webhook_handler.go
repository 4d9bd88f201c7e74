package handlers

import (
	"io"
	"net/http"

	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/rentwise/settlement-service/internal/services/webhook"
	"github.com/rentwise/settlement-service/pkg/observability"
)

// gatewayWebhook ingests one signed gateway event. The signature was already
// verified by the wrapping middleware. Idempotent dispatch means a 200 here
// only promises the event was durably applied or recognized as a duplicate;
// the gateway stops retrying on any 2xx.
func (h *Handler) gatewayWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		observability.RecordWebhookEvent("unknown", "rejected")
		writeError(w, http.StatusBadRequest, "GATEWAY_INVALID_PAYLOAD", "unreadable body")
		return
	}

	event, err := webhook.ParseEvent(payload)
	if err != nil {
		observability.RecordWebhookEvent("unknown", "rejected")
		writeDomainError(w, err)
		return
	}

	handled, err := h.webhook.Dispatch(r.Context(), event)
	if err != nil {
		h.logger.Error("webhook dispatch failed",
			ports.String("event_id", event.ID),
			ports.String("event_type", event.Type),
			ports.Err(err))
		observability.RecordWebhookEvent(event.Type, "failed")
		writeDomainError(w, err)
		return
	}

	if !handled {
		observability.RecordWebhookEvent(event.Type, "ignored")
		writeSuccess(w, http.StatusOK, map[string]any{"received": true, "handled": false})
		return
	}

	observability.RecordWebhookEvent(event.Type, "handled")
	writeSuccess(w, http.StatusOK, map[string]any{"received": true, "handled": true})
}
