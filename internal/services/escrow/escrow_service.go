package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// Service controls the escrow hold on rent payments. Release is an explicit
// admin decision; the inspection flags are informational and never gate it.
type Service struct {
	repo   ports.PaymentRepository
	audit  ports.AuditTrail
	logger ports.Logger
	now    func() time.Time
}

// NewService creates a new escrow service
func NewService(repo ports.PaymentRepository, audit ports.AuditTrail, logger ports.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// ReleaseEscrow releases a held rent payment to the landlord's available
// balance. When the hold ran past the hold period, a late-release interest
// deduction accrues per overdue day and the net amount is recomputed.
// Releasing twice is a conflict; the funds move at most once.
func (s *Service) ReleaseEscrow(ctx context.Context, actor domain.Principal, paymentID string) (*domain.PaymentEntry, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payment_id", paymentID)
	}

	entry, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !entry.IsEscrow {
		return nil, domain.ErrNotEscrowEntry
	}
	if entry.EscrowStatus == domain.EscrowStatusReleased {
		return nil, domain.ErrEscrowAlreadyFreed
	}
	if !entry.CanBeReleased() {
		return nil, domain.ErrEscrowNotHeld.WithDetail("status", string(entry.Status))
	}

	now := s.now().UTC()
	daysHeld := entry.DaysHeld(now)
	interest := domain.LateReleaseInterest(entry.Amount, daysHeld)
	netAmount := entry.Amount - entry.CommissionAmount - interest

	released, err := s.repo.ReleaseEscrow(ctx, nil, id, interest, netAmount, now)
	if err != nil {
		return nil, err
	}
	if !released {
		// Lost the race against a concurrent release
		return nil, domain.ErrEscrowAlreadyFreed
	}

	s.audit.Record(ctx, actor, "escrow.released", "payment_entry", paymentID,
		map[string]interface{}{"escrow_status": string(domain.EscrowStatusHeld), "net_amount": entry.LandlordNetAmount},
		map[string]interface{}{"escrow_status": string(domain.EscrowStatusReleased), "interest": interest, "net_amount": netAmount, "days_held": daysHeld})

	s.logger.Info("escrow released",
		ports.String("payment_id", paymentID),
		ports.Int("days_held", daysHeld),
		ports.Int64("interest", interest),
		ports.Int64("net_amount", netAmount),
		ports.String("actor_id", actor.UserID))

	return s.repo.GetByID(ctx, nil, id)
}

// SetInspectionFlags updates the informational propertyVisited and
// documentsReceived markers. Nil leaves a flag untouched.
func (s *Service) SetInspectionFlags(ctx context.Context, actor domain.Principal, paymentID string, propertyVisited, documentsReceived *bool) (*domain.PaymentEntry, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payment_id", paymentID)
	}
	if propertyVisited == nil && documentsReceived == nil {
		return nil, domain.ErrValidationFailed.WithDetail("reason", "no flags provided")
	}

	entry, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !entry.IsEscrow {
		return nil, domain.ErrNotEscrowEntry
	}

	if err := s.repo.SetInspectionFlags(ctx, nil, id, propertyVisited, documentsReceived); err != nil {
		return nil, err
	}

	after := map[string]interface{}{}
	before := map[string]interface{}{}
	if propertyVisited != nil {
		before["property_visited"] = entry.PropertyVisited
		after["property_visited"] = *propertyVisited
	}
	if documentsReceived != nil {
		before["documents_received"] = entry.DocumentsReceived
		after["documents_received"] = *documentsReceived
	}
	s.audit.Record(ctx, actor, "escrow.inspection_flags_updated", "payment_entry", paymentID, before, after)

	s.logger.Info("escrow inspection flags updated",
		ports.String("payment_id", paymentID),
		ports.String("actor_id", actor.UserID))

	return s.repo.GetByID(ctx, nil, id)
}
