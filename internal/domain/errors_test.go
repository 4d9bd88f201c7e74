package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentwise/settlement-service/internal/domain"
)

func TestDomainError_Categories(t *testing.T) {
	assert.True(t, domain.IsValidationError(domain.ErrInvalidAmount))
	assert.True(t, domain.IsNotFoundError(domain.ErrPaymentNotFound))
	assert.True(t, domain.IsNotFoundError(domain.ErrPayoutNotFound))
	assert.True(t, domain.IsConflictError(domain.ErrEscrowAlreadyFreed))
	assert.True(t, domain.IsConflictError(domain.ErrAllocationConflict))
	assert.True(t, domain.IsConflictError(domain.ErrInvalidTransition))
	assert.True(t, domain.IsAuthError(domain.ErrAuthAccessDenied))
	assert.True(t, domain.IsGatewayError(domain.ErrTransferFailed))

	assert.False(t, domain.IsValidationError(domain.ErrPaymentNotFound))
	assert.False(t, domain.IsConflictError(domain.ErrInvalidAmount))
	assert.False(t, domain.IsNotFoundError(errors.New("plain error")))
}

func TestDomainError_WithDetailCopies(t *testing.T) {
	detailed := domain.ErrRateOutOfRange.WithDetail("rate", "1.5")

	assert.Equal(t, "1.5", detailed.Details["rate"])
	// Sentinel must stay untouched
	_, exists := domain.ErrRateOutOfRange.Details["rate"]
	assert.False(t, exists)
	assert.Equal(t, domain.ErrRateOutOfRange.Code, detailed.Code)
}

func TestDomainError_UnwrapChain(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := domain.WrapError(domain.ErrorCodeDatabaseError, "query failed", cause)

	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, domain.ErrorCodeDatabaseError, domain.GetErrorCode(wrapped))

	// Codes survive another fmt.Errorf wrap
	outer := fmt.Errorf("handler: %w", wrapped)
	assert.Equal(t, domain.ErrorCodeDatabaseError, domain.GetErrorCode(outer))
	assert.True(t, domain.IsDomainError(outer, domain.ErrorCodeDatabaseError))
}
