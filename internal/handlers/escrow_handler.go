package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentwise/settlement-service/pkg/observability"
)

func (h *Handler) releaseEscrow(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	entry, err := h.escrow.ReleaseEscrow(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	observability.RecordEscrowRelease()
	writeSuccess(w, http.StatusOK, entry)
}

type escrowFlagsBody struct {
	PropertyVisited   *bool `json:"property_visited,omitempty"`
	DocumentsReceived *bool `json:"documents_received,omitempty"`
}

func (h *Handler) setEscrowFlags(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var body escrowFlagsBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	entry, err := h.escrow.SetInspectionFlags(r.Context(), principal, chi.URLParam(r, "id"),
		body.PropertyVisited, body.DocumentsReceived)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entry)
}
