package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rentwise/settlement-service/internal/domain"
)

type apiError struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// writeDomainError maps a service error onto the HTTP taxonomy. Unrecognized
// errors become opaque 500s so internal detail never leaks to callers.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		response := apiError{
			Status:  "error",
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
		}
		if status != http.StatusInternalServerError {
			response.Details = domainErr.Details
		}
		writeJSON(w, status, response)
		return
	}
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func statusForError(err error) int {
	switch {
	case domain.IsValidationError(err) || domain.GetErrorCode(err) == domain.ErrorCodeGatewayInvalidPayload:
		return http.StatusBadRequest
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsConflictError(err):
		return http.StatusConflict
	case domain.GetErrorCode(err) == domain.ErrorCodeAuthMissing:
		return http.StatusUnauthorized
	case domain.IsAuthError(err):
		return http.StatusForbidden
	case domain.IsGatewayError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
