package handlers

import (
	"net/http"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	balance, err := h.account.GetBalance(r.Context(), principal.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, balance)
}

func (h *Handler) getEarnings(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	from, to, err := timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	breakdown, err := h.account.GetEarningsBreakdown(r.Context(), principal.UserID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, breakdown)
}

func (h *Handler) listOwnPayments(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	from, to, err := timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	limit, offset := pagination(r)

	entries, err := h.ledger.ListForLandlord(r.Context(), principal.UserID, ports.PaymentFilter{
		From:   from,
		To:     to,
		Status: domain.PaymentStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}
