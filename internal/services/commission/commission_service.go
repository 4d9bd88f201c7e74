package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// Service manages the platform commission rate register
type Service struct {
	db     ports.DBPort
	repo   ports.CommissionRepository
	audit  ports.AuditTrail
	logger ports.Logger
}

// NewService creates a new commission rate service
func NewService(db ports.DBPort, repo ports.CommissionRepository, audit ports.AuditTrail, logger ports.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// GetCurrent returns the current commission rate, seeding the register with the
// default rate on first read.
func (s *Service) GetCurrent(ctx context.Context) (*domain.CommissionRate, error) {
	current, err := s.repo.GetCurrent(ctx, nil)
	if err == nil {
		return current, nil
	}
	if domain.GetErrorCode(err) != domain.ErrorCodeRateNotFound {
		return nil, err
	}

	seeded, err := s.repo.InitDefault(ctx, nil, domain.DefaultCommissionRate, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("commission register seeded with default rate",
		ports.String("rate", seeded.Rate.String()))

	return seeded, nil
}

// UpdateRate replaces the current commission rate. The change applies only to
// entries recorded after it; rates already stamped on the ledger never move.
func (s *Service) UpdateRate(ctx context.Context, actor domain.Principal, newRate decimal.Decimal, reason string) (*domain.CommissionRate, error) {
	if !domain.ValidCommissionRate(newRate) {
		return nil, domain.ErrRateOutOfRange.WithDetail("rate", newRate.String())
	}
	if reason == "" {
		return nil, domain.ErrRateReasonMissing
	}

	now := time.Now().UTC()

	// The prior rate is captured under the row lock, inside the same
	// transaction as the write. Two racing updates serialize on the lock and
	// each history record references the rate the other one committed.
	var previous *domain.CommissionRate
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		previous, err = s.repo.GetCurrentForUpdate(ctx, tx)
		if err != nil && domain.GetErrorCode(err) == domain.ErrorCodeRateNotFound {
			if _, err = s.repo.InitDefault(ctx, tx, domain.DefaultCommissionRate, now); err != nil {
				return err
			}
			previous, err = s.repo.GetCurrentForUpdate(ctx, tx)
		}
		if err != nil {
			return err
		}

		if err := s.repo.UpdateCurrent(ctx, tx, newRate, actor.UserID, now); err != nil {
			return err
		}
		return s.repo.AppendHistory(ctx, tx, &domain.CommissionRateChange{
			ID:           uuid.New().String(),
			Rate:         newRate,
			PreviousRate: previous.Rate,
			Reason:       reason,
			ChangedBy:    actor.UserID,
			ChangedAt:    now,
		})
	})
	if err != nil {
		s.logger.Error("commission rate update failed",
			ports.String("actor_id", actor.UserID),
			ports.String("error", err.Error()))
		return nil, err
	}

	s.audit.Record(ctx, actor, "commission.rate_updated", "commission_rate", "current",
		map[string]interface{}{"rate": previous.Rate.String()},
		map[string]interface{}{"rate": newRate.String(), "reason": reason})

	s.logger.Info("commission rate updated",
		ports.String("previous_rate", previous.Rate.String()),
		ports.String("new_rate", newRate.String()),
		ports.String("actor_id", actor.UserID))

	return &domain.CommissionRate{
		Rate:          newRate,
		EffectiveFrom: now,
		LastUpdatedBy: actor.UserID,
		LastUpdatedAt: now,
	}, nil
}

// GetHistory returns the rate change history, oldest first, optionally bounded
func (s *Service) GetHistory(ctx context.Context, from, to *time.Time) ([]domain.CommissionRateChange, error) {
	return s.repo.ListHistory(ctx, nil, from, to)
}
