package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationRateInvalid   ErrorCode = "VALIDATION_RATE_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Ledger errors (LEDGER_*)
	ErrorCodeLedgerEntryNotFound    ErrorCode = "LEDGER_ENTRY_NOT_FOUND"
	ErrorCodeLedgerInvalidState     ErrorCode = "LEDGER_INVALID_STATE"
	ErrorCodeLedgerRefundNotAllowed ErrorCode = "LEDGER_REFUND_NOT_ALLOWED"

	// Escrow errors (ESCROW_*)
	ErrorCodeEscrowNotHeld      ErrorCode = "ESCROW_NOT_HELD"
	ErrorCodeEscrowNotEscrow    ErrorCode = "ESCROW_NOT_ESCROW_ENTRY"
	ErrorCodeEscrowAlreadyFreed ErrorCode = "ESCROW_ALREADY_RELEASED"

	// Payout errors (PAYOUT_*)
	ErrorCodePayoutNotFound            ErrorCode = "PAYOUT_NOT_FOUND"
	ErrorCodePayoutInvalidTransition   ErrorCode = "PAYOUT_INVALID_TRANSITION"
	ErrorCodePayoutInsufficientBalance ErrorCode = "PAYOUT_INSUFFICIENT_BALANCE"
	ErrorCodePayoutAllocationConflict  ErrorCode = "PAYOUT_ALLOCATION_CONFLICT"
	ErrorCodePayoutAlreadyProcessed    ErrorCode = "PAYOUT_ALREADY_PROCESSED"
	ErrorCodePayoutMethodInvalid       ErrorCode = "PAYOUT_METHOD_INVALID"

	// Commission register errors (RATE_*)
	ErrorCodeRateNotFound     ErrorCode = "RATE_NOT_FOUND"
	ErrorCodeRateOutOfRange   ErrorCode = "RATE_OUT_OF_RANGE"
	ErrorCodeRateReasonNeeded ErrorCode = "RATE_REASON_REQUIRED"

	// Authentication & authorization errors (AUTH_*)
	ErrorCodeAuthMissing      ErrorCode = "AUTH_MISSING"
	ErrorCodeAuthAccessDenied ErrorCode = "AUTH_ACCESS_DENIED"

	// External gateway errors (GATEWAY_*)
	ErrorCodeGatewayError            ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayInvalidSignature ErrorCode = "GATEWAY_INVALID_SIGNATURE"
	ErrorCodeGatewayInvalidPayload   ErrorCode = "GATEWAY_INVALID_PAYLOAD"
	ErrorCodeTransferFailed          ErrorCode = "GATEWAY_TRANSFER_FAILED"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error with the detail field added.
// Copying keeps the shared sentinel instances immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationRateInvalid ||
		code == ErrorCodeValidationMissingField ||
		code == ErrorCodeRateOutOfRange ||
		code == ErrorCodeRateReasonNeeded ||
		code == ErrorCodePayoutMethodInvalid ||
		code == ErrorCodePayoutInsufficientBalance
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeLedgerEntryNotFound ||
		code == ErrorCodePayoutNotFound ||
		code == ErrorCodeRateNotFound
}

// IsConflictError checks if an error represents a wrong-state or double-claim
// condition; safe to retry the intended operation after re-reading state.
func IsConflictError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeLedgerInvalidState ||
		code == ErrorCodeLedgerRefundNotAllowed ||
		code == ErrorCodeEscrowNotHeld ||
		code == ErrorCodeEscrowNotEscrow ||
		code == ErrorCodeEscrowAlreadyFreed ||
		code == ErrorCodePayoutInvalidTransition ||
		code == ErrorCodePayoutAllocationConflict ||
		code == ErrorCodePayoutAlreadyProcessed
}

// IsAuthError checks if an error is authentication/authorization related
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthMissing || code == ErrorCodeAuthAccessDenied
}

// IsGatewayError checks if an error came from the external gateway or
// transfer mechanism; ledger state stays retryable when it is set.
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayError || code == ErrorCodeTransferFailed
}

// Structured error instances
var (
	ErrValidationFailed  = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrInvalidAmount     = NewDomainError(ErrorCodeValidationAmountInvalid, "amount must be a positive number of minor units")
	ErrMissingField      = NewDomainError(ErrorCodeValidationMissingField, "required field missing")
	ErrRateNotFound      = NewDomainError(ErrorCodeRateNotFound, "commission rate not initialized")
	ErrRateOutOfRange    = NewDomainError(ErrorCodeRateOutOfRange, "commission rate must be between 0 and 1")
	ErrRateReasonMissing = NewDomainError(ErrorCodeRateReasonNeeded, "a reason is required when changing the commission rate")

	ErrPaymentNotFound  = NewDomainError(ErrorCodeLedgerEntryNotFound, "payment entry not found")
	ErrInvalidState     = NewDomainError(ErrorCodeLedgerInvalidState, "payment entry is in invalid state for this operation")
	ErrRefundNotAllowed = NewDomainError(ErrorCodeLedgerRefundNotAllowed, "only completed payments can be refunded")

	ErrNotEscrowEntry       = NewDomainError(ErrorCodeEscrowNotEscrow, "payment entry is not held in escrow")
	ErrEscrowNotHeld        = NewDomainError(ErrorCodeEscrowNotHeld, "escrow is not in held state")
	ErrEscrowAlreadyFreed   = NewDomainError(ErrorCodeEscrowAlreadyFreed, "escrow has already been released")
	ErrPayoutNotFound       = NewDomainError(ErrorCodePayoutNotFound, "payout request not found")
	ErrInvalidTransition    = NewDomainError(ErrorCodePayoutInvalidTransition, "payout request cannot make this transition")
	ErrInsufficientBalance  = NewDomainError(ErrorCodePayoutInsufficientBalance, "requested amount exceeds available balance")
	ErrAllocationConflict   = NewDomainError(ErrorCodePayoutAllocationConflict, "payment entries were claimed by a concurrent request")
	ErrAlreadyProcessed     = NewDomainError(ErrorCodePayoutAlreadyProcessed, "payout request has already been processed")
	ErrPayoutMethodInvalid  = NewDomainError(ErrorCodePayoutMethodInvalid, "unsupported payout method")
	ErrPayoutBankDetailsMissing    = NewDomainError(ErrorCodePayoutMethodInvalid, "bank transfer payouts require bank details")
	ErrPayoutConnectAccountMissing = NewDomainError(ErrorCodePayoutMethodInvalid, "stripe connect payouts require a connect account id")

	ErrAuthMissing      = NewDomainError(ErrorCodeAuthMissing, "authentication required")
	ErrAuthAccessDenied = NewDomainError(ErrorCodeAuthAccessDenied, "access denied")

	ErrGatewayError     = NewDomainError(ErrorCodeGatewayError, "payment gateway error")
	ErrInvalidSignature = NewDomainError(ErrorCodeGatewayInvalidSignature, "webhook signature verification failed")
	ErrInvalidPayload   = NewDomainError(ErrorCodeGatewayInvalidPayload, "webhook payload could not be parsed")
	ErrTransferFailed   = NewDomainError(ErrorCodeTransferFailed, "external transfer execution failed")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
