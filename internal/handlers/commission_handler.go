package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
)

func (h *Handler) getCommissionRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.commission.GetCurrent(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rate)
}

type updateCommissionRateBody struct {
	Rate   decimal.Decimal `json:"rate"`
	Reason string          `json:"reason"`
}

func (h *Handler) updateCommissionRate(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var body updateCommissionRateBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	rate, err := h.commission.UpdateRate(r.Context(), principal, body.Rate, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rate)
}

func (h *Handler) getCommissionHistory(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	history, err := h.commission.GetHistory(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, history)
}
