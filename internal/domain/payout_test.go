package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentwise/settlement-service/internal/domain"
)

func TestPayoutStatus_CanTransitionTo(t *testing.T) {
	allStatuses := []domain.PayoutStatus{
		domain.PayoutStatusPending,
		domain.PayoutStatusApproved,
		domain.PayoutStatusRejected,
		domain.PayoutStatusProcessed,
	}

	allowed := map[domain.PayoutStatus]map[domain.PayoutStatus]bool{
		domain.PayoutStatusPending: {
			domain.PayoutStatusApproved: true,
			domain.PayoutStatusRejected: true,
		},
		domain.PayoutStatusApproved: {
			domain.PayoutStatusProcessed: true,
			domain.PayoutStatusRejected:  true,
		},
		domain.PayoutStatusRejected:  {},
		domain.PayoutStatusProcessed: {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			expected := allowed[from][to]
			assert.Equal(t, expected, from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestPayoutStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.PayoutStatusPending.IsTerminal())
	assert.False(t, domain.PayoutStatusApproved.IsTerminal())
	assert.True(t, domain.PayoutStatusRejected.IsTerminal())
	assert.True(t, domain.PayoutStatusProcessed.IsTerminal())
}

func TestPayoutRequest_CanBeCancelledBy(t *testing.T) {
	request := &domain.PayoutRequest{
		LandlordID: "landlord-1",
		Status:     domain.PayoutStatusPending,
	}

	assert.True(t, request.CanBeCancelledBy("landlord-1"))
	assert.False(t, request.CanBeCancelledBy("landlord-2"))

	request.Status = domain.PayoutStatusApproved
	assert.False(t, request.CanBeCancelledBy("landlord-1"))
}

func TestPayoutRequest_ValidateMethodDetails(t *testing.T) {
	tests := []struct {
		name    string
		request domain.PayoutRequest
		wantErr error
	}{
		{
			"bank transfer with details",
			domain.PayoutRequest{
				Method: domain.PayoutMethodBankTransfer,
				BankDetails: &domain.BankDetails{
					BankName:      "First National",
					AccountNumber: "12345678",
					AccountName:   "A. Landlord",
				},
			},
			nil,
		},
		{
			"bank transfer without details",
			domain.PayoutRequest{Method: domain.PayoutMethodBankTransfer},
			domain.ErrPayoutBankDetailsMissing,
		},
		{
			"stripe connect with account",
			domain.PayoutRequest{
				Method:           domain.PayoutMethodStripeConnect,
				ConnectAccountID: "acct_123",
			},
			nil,
		},
		{
			"stripe connect without account",
			domain.PayoutRequest{Method: domain.PayoutMethodStripeConnect},
			domain.ErrPayoutConnectAccountMissing,
		},
		{
			"unknown method",
			domain.PayoutRequest{Method: "paper_check"},
			domain.ErrPayoutMethodInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.ValidateMethodDetails()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
