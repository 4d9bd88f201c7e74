package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/services/payout"
	"github.com/rentwise/settlement-service/pkg/observability"
)

type createPayoutRequestBody struct {
	Amount           int64               `json:"amount"`
	Currency         string              `json:"currency"`
	Method           domain.PayoutMethod `json:"payment_method"`
	BankDetails      *domain.BankDetails `json:"bank_details,omitempty"`
	ConnectAccountID string              `json:"connect_account_id,omitempty"`
}

func (h *Handler) createPayoutRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var body createPayoutRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	request, err := h.payout.CreateRequest(r.Context(), principal, &payout.CreateRequestInput{
		LandlordID:       principal.UserID,
		Amount:           body.Amount,
		Currency:         body.Currency,
		Method:           body.Method,
		BankDetails:      body.BankDetails,
		ConnectAccountID: body.ConnectAccountID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	observability.RecordPayoutTransition(string(domain.PayoutStatusPending))
	writeSuccess(w, http.StatusCreated, request)
}

func (h *Handler) listOwnPayoutRequests(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	limit, offset := pagination(r)

	requests, err := h.payout.ListForLandlord(r.Context(), principal.UserID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, requests)
}

func (h *Handler) cancelPayoutRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	request, err := h.payout.Cancel(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	observability.RecordPayoutTransition(string(domain.PayoutStatusRejected))
	writeSuccess(w, http.StatusOK, request)
}

func (h *Handler) listPendingPayoutRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	requests, err := h.payout.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, requests)
}

type reviewPayoutBody struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) approvePayoutRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var body reviewPayoutBody
	if err := decodeBodyOptional(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	request, err := h.payout.Approve(r.Context(), principal, chi.URLParam(r, "id"), body.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	observability.RecordPayoutTransition(string(domain.PayoutStatusApproved))
	writeSuccess(w, http.StatusOK, request)
}

func (h *Handler) rejectPayoutRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var body reviewPayoutBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	request, err := h.payout.Reject(r.Context(), principal, chi.URLParam(r, "id"), body.Reason, body.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	observability.RecordPayoutTransition(string(domain.PayoutStatusRejected))
	writeSuccess(w, http.StatusOK, request)
}

type processPayoutBody struct {
	OperatorReference string `json:"operator_reference,omitempty"`
}

func (h *Handler) processPayoutRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var body processPayoutBody
	if err := decodeBodyOptional(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	request, err := h.payout.Process(r.Context(), principal, chi.URLParam(r, "id"), body.OperatorReference)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	observability.RecordPayoutTransition(string(domain.PayoutStatusProcessed))
	writeSuccess(w, http.StatusOK, request)
}

func pagination(r *http.Request) (limit, offset int32) {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(parsed)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil && parsed >= 0 {
			offset = int32(parsed)
		}
	}
	return limit, offset
}
