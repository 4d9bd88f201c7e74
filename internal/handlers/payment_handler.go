package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/services/ledger"
)

type initiatePaymentBody struct {
	ExternalReference string `json:"external_reference"`
	ApplicationID     string `json:"application_id"`
	PayerUserID       string `json:"payer_user_id"`
	LandlordID        string `json:"landlord_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Kind              string `json:"kind"`
}

// initiatePayment writes a pending ledger entry when the checkout service
// opens a gateway session, ahead of the webhook that settles it.
func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var body initiatePaymentBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	entry, err := h.ledger.RecordPendingPayment(r.Context(), &ledger.RecordPaymentInput{
		ExternalReference: body.ExternalReference,
		ApplicationID:     body.ApplicationID,
		PayerUserID:       body.PayerUserID,
		LandlordID:        body.LandlordID,
		Amount:            body.Amount,
		Currency:          body.Currency,
		Kind:              domain.PaymentKind(body.Kind),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, entry)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	entry, err := h.ledger.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entry)
}

type refundPaymentBody struct {
	RefundAmount int64  `json:"refund_amount"`
	Reason       string `json:"reason"`
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	var body refundPaymentBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	entry, err := h.ledger.MarkRefunded(r.Context(), chi.URLParam(r, "id"), body.RefundAmount, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entry)
}
