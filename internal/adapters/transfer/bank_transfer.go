package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// BankTransferAdapter records manually executed bank transfers. The money moves
// outside the platform; an operator keys in the transfer reference and this
// adapter validates and echoes it back as the transfer id.
type BankTransferAdapter struct {
	logger ports.Logger
}

// NewBankTransferAdapter creates a new manual bank transfer adapter
func NewBankTransferAdapter(logger ports.Logger) *BankTransferAdapter {
	return &BankTransferAdapter{logger: logger}
}

// Execute records the operator-supplied transfer reference. When no reference
// is supplied a synthetic one is generated so the payout record always carries
// a traceable id.
func (a *BankTransferAdapter) Execute(ctx context.Context, req *ports.TransferRequest) (*ports.TransferResult, error) {
	if req.Method != domain.PayoutMethodBankTransfer {
		return nil, domain.NewDomainError(domain.ErrorCodePayoutMethodInvalid,
			fmt.Sprintf("bank transfer adapter cannot execute %s payouts", req.Method))
	}
	if req.BankDetails == nil {
		return nil, domain.ErrPayoutBankDetailsMissing
	}

	transferID := req.OperatorReference
	if transferID == "" {
		transferID = "manual_" + uuid.New().String()
	}

	a.logger.Info("Recorded manual bank transfer",
		ports.String("payout_request_id", req.IdempotencyKey),
		ports.String("transfer_id", transferID),
		ports.Int64("amount", req.Amount),
		ports.String("currency", req.Currency),
	)

	return &ports.TransferResult{TransferID: transferID}, nil
}
