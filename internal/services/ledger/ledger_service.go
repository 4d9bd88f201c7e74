package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// RateProvider supplies the current commission rate for stamping new entries
type RateProvider interface {
	GetCurrent(ctx context.Context) (*domain.CommissionRate, error)
}

// RecordPaymentInput is a confirmed or initiated gateway payment to ledger
type RecordPaymentInput struct {
	ExternalReference string
	ApplicationID     string
	PayerUserID       string
	LandlordID        string
	Amount            int64
	Currency          string
	Kind              domain.PaymentKind
}

// Service owns the payment ledger. Entries are append-oriented: status moves
// through conditional single-row updates and financial figures stamped at
// creation never change, except the escrow release recomputation.
type Service struct {
	repo   ports.PaymentRepository
	rates  RateProvider
	logger ports.Logger
}

// NewService creates a new ledger service
func NewService(repo ports.PaymentRepository, rates RateProvider, logger ports.Logger) *Service {
	return &Service{
		repo:   repo,
		rates:  rates,
		logger: logger,
	}
}

func (in *RecordPaymentInput) validate() error {
	if in.ExternalReference == "" {
		return domain.ErrMissingField.WithDetail("field", "external_reference")
	}
	if in.ApplicationID == "" {
		return domain.ErrMissingField.WithDetail("field", "application_id")
	}
	if in.LandlordID == "" {
		return domain.ErrMissingField.WithDetail("field", "landlord_id")
	}
	if in.Amount <= 0 {
		return domain.ErrInvalidAmount.WithDetail("amount", in.Amount)
	}
	if in.Kind != domain.PaymentKindApplicationFee && in.Kind != domain.PaymentKindRent {
		return domain.ErrValidationFailed.WithDetail("kind", string(in.Kind))
	}
	return nil
}

// buildEntry stamps the current commission rate onto a fresh entry
func (s *Service) buildEntry(ctx context.Context, input *RecordPaymentInput, status domain.PaymentStatus) (*domain.PaymentEntry, error) {
	rate, err := s.rates.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}

	commission := domain.CommissionFor(input.Amount, rate.Rate)
	now := time.Now().UTC()

	entry := &domain.PaymentEntry{
		ID:                uuid.New().String(),
		ApplicationID:     input.ApplicationID,
		PayerUserID:       input.PayerUserID,
		LandlordID:        input.LandlordID,
		Amount:            input.Amount,
		Currency:          input.Currency,
		Status:            status,
		Kind:              input.Kind,
		IsEscrow:          input.Kind == domain.PaymentKindRent,
		CommissionRate:    rate.Rate,
		CommissionAmount:  commission,
		LandlordNetAmount: input.Amount - commission,
		ExternalReference: input.ExternalReference,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if entry.IsEscrow && status == domain.PaymentStatusCompleted {
		heldAt := now
		expiresAt := now.Add(domain.EscrowHoldPeriodDays * 24 * time.Hour)
		entry.EscrowStatus = domain.EscrowStatusHeld
		entry.EscrowHeldAt = &heldAt
		entry.EscrowExpiresAt = &expiresAt
	}

	return entry, nil
}

// RecordConfirmedPayment writes a completed ledger entry for a gateway checkout
// that already settled. Idempotent on the external reference: redelivery
// returns the existing entry untouched.
func (s *Service) RecordConfirmedPayment(ctx context.Context, input *RecordPaymentInput) (*domain.PaymentEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	entry, err := s.buildEntry(ctx, input, domain.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.CreateIdempotent(ctx, nil, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.logger.Info("duplicate payment delivery ignored",
			ports.String("external_reference", input.ExternalReference))
		return s.repo.GetByExternalReference(ctx, nil, input.ExternalReference)
	}

	s.logger.Info("payment recorded",
		ports.String("payment_id", entry.ID),
		ports.String("external_reference", entry.ExternalReference),
		ports.String("kind", string(entry.Kind)),
		ports.Int64("amount", entry.Amount),
		ports.Int64("commission", entry.CommissionAmount),
		ports.Bool("escrow", entry.IsEscrow))

	return entry, nil
}

// RecordPendingPayment writes a pending entry at checkout initiation, before
// the gateway settles. Same idempotency discipline as confirmed recording.
func (s *Service) RecordPendingPayment(ctx context.Context, input *RecordPaymentInput) (*domain.PaymentEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	entry, err := s.buildEntry(ctx, input, domain.PaymentStatusPending)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.CreateIdempotent(ctx, nil, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.repo.GetByExternalReference(ctx, nil, input.ExternalReference)
	}

	s.logger.Info("pending payment recorded",
		ports.String("payment_id", entry.ID),
		ports.String("external_reference", entry.ExternalReference))

	return entry, nil
}

// ConfirmPayment moves a pending entry to completed, arming the escrow hold on
// rent entries. Safe under redelivery: an entry already completed is a no-op
// and an unknown reference is tolerated (the confirmed-recording path may have
// created the entry as completed directly).
func (s *Service) ConfirmPayment(ctx context.Context, externalReference string) error {
	if externalReference == "" {
		return domain.ErrMissingField.WithDetail("field", "external_reference")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(domain.EscrowHoldPeriodDays * 24 * time.Hour)

	updated, err := s.repo.ConfirmPending(ctx, nil, externalReference, now, expiresAt)
	if err != nil {
		return err
	}
	if !updated {
		// Already confirmed, failed, or never recorded. All tolerable for
		// at-least-once webhook delivery.
		s.logger.Debug("payment confirmation matched no pending entry",
			ports.String("external_reference", externalReference))
		return nil
	}

	s.logger.Info("payment confirmed",
		ports.String("external_reference", externalReference))
	return nil
}

// MarkFailed moves a pending entry to failed, storing the gateway reason
func (s *Service) MarkFailed(ctx context.Context, externalReference, reason string) error {
	if externalReference == "" {
		return domain.ErrMissingField.WithDetail("field", "external_reference")
	}

	updated, err := s.repo.MarkFailed(ctx, nil, externalReference, reason)
	if err != nil {
		return err
	}
	if !updated {
		entry, err := s.repo.GetByExternalReference(ctx, nil, externalReference)
		if err != nil {
			// Failure events for unknown references are ignored
			if domain.IsNotFoundError(err) {
				return nil
			}
			return err
		}
		if entry.Status == domain.PaymentStatusFailed {
			return nil
		}
		return domain.ErrInvalidState.WithDetail("status", string(entry.Status))
	}

	s.logger.Info("payment marked failed",
		ports.String("external_reference", externalReference),
		ports.String("reason", reason))
	return nil
}

// MarkRefunded refunds a completed payment. Only completed entries can be
// refunded and the refund cannot exceed the original amount.
func (s *Service) MarkRefunded(ctx context.Context, id string, refundAmount int64, reason string) (*domain.PaymentEntry, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payment_id", id)
	}
	if refundAmount <= 0 {
		return nil, domain.ErrInvalidAmount.WithDetail("refund_amount", refundAmount)
	}

	entry, err := s.repo.GetByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if !entry.CanBeRefunded() {
		return nil, domain.ErrRefundNotAllowed.WithDetail("status", string(entry.Status))
	}
	if refundAmount > entry.Amount {
		return nil, domain.ErrInvalidAmount.WithDetail("refund_amount", refundAmount).
			WithDetail("amount", entry.Amount)
	}

	updated, err := s.repo.MarkRefunded(ctx, nil, paymentID, refundAmount, reason)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrRefundNotAllowed
	}

	s.logger.Info("payment refunded",
		ports.String("payment_id", id),
		ports.Int64("refund_amount", refundAmount))

	return s.repo.GetByID(ctx, nil, paymentID)
}

// GetPayment retrieves one ledger entry
func (s *Service) GetPayment(ctx context.Context, id string) (*domain.PaymentEntry, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payment_id", id)
	}
	return s.repo.GetByID(ctx, nil, paymentID)
}

// ListForLandlord lists a landlord's ledger entries for statements
func (s *Service) ListForLandlord(ctx context.Context, landlordID string, filter ports.PaymentFilter) ([]*domain.PaymentEntry, error) {
	if landlordID == "" {
		return nil, domain.ErrMissingField.WithDetail("field", "landlord_id")
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	return s.repo.ListForLandlord(ctx, nil, landlordID, filter)
}
