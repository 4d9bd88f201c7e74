package ports

import (
	"context"

	"github.com/rentwise/settlement-service/internal/domain"
)

// TransferRequest describes one payout execution. IdempotencyKey is the payout
// request id; a retried call with the same key must not move funds twice.
type TransferRequest struct {
	IdempotencyKey   string
	Amount           int64
	Currency         string
	Method           domain.PayoutMethod
	BankDetails      *domain.BankDetails
	ConnectAccountID string
	// OperatorReference is the transfer reference keyed in manually for
	// bank_transfer payouts executed outside the platform.
	OperatorReference string
}

// TransferResult is the recorded outcome of an external transfer call
type TransferResult struct {
	TransferID string
}

// TransferGateway executes a payout against an external transfer mechanism.
// The call happens outside any atomic ledger step and may be retried.
type TransferGateway interface {
	Execute(ctx context.Context, req *TransferRequest) (*TransferResult, error)
}
