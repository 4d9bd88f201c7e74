package account

import (
	"context"
	"time"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// Service computes landlord account views by aggregating the ledger.
// Balances are always derived; nothing here is a source of truth.
type Service struct {
	repo   ports.PaymentRepository
	logger ports.Logger
}

// NewService creates a new landlord account service
func NewService(repo ports.PaymentRepository, logger ports.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetBalance returns the landlord's lifetime totals and available balance.
// Available counts only completed entries that are out of escrow (or never in
// it) and not claimed by a payout request.
func (s *Service) GetBalance(ctx context.Context, landlordID string) (*domain.LandlordBalance, error) {
	if landlordID == "" {
		return nil, domain.ErrMissingField.WithDetail("field", "landlord_id")
	}
	return s.repo.AggregateBalance(ctx, nil, landlordID)
}

// GetEarningsBreakdown returns a per-payment statement for the window with
// window totals. Bounds are optional.
func (s *Service) GetEarningsBreakdown(ctx context.Context, landlordID string, from, to *time.Time) (*domain.EarningsBreakdown, error) {
	if landlordID == "" {
		return nil, domain.ErrMissingField.WithDetail("field", "landlord_id")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.ErrValidationFailed.WithDetail("reason", "to precedes from")
	}

	lines, err := s.repo.ListEarnings(ctx, nil, landlordID, from, to)
	if err != nil {
		return nil, err
	}

	breakdown := &domain.EarningsBreakdown{
		LandlordID: landlordID,
		From:       from,
		To:         to,
		Lines:      lines,
	}
	for _, line := range lines {
		breakdown.TotalGross += line.Amount
		breakdown.TotalCommission += line.CommissionAmount
		breakdown.TotalEscrowInterest += line.EscrowInterest
		breakdown.TotalNet += line.NetAmount
	}

	return breakdown, nil
}
