package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/rentwise/settlement-service/internal/domain"
)

// CommissionRepository persists the singleton current rate and its
// append-only history. History rows are never updated or deleted.
type CommissionRepository interface {
	// GetCurrent returns the current rate, or ErrRateNotFound before first init
	GetCurrent(ctx context.Context, db DBTX) (*domain.CommissionRate, error)

	// GetCurrentForUpdate reads the current rate with a row lock held for the
	// rest of the transaction, serializing concurrent rate updates.
	GetCurrentForUpdate(ctx context.Context, db DBTX) (*domain.CommissionRate, error)

	// InitDefault inserts the default singleton row if none exists and
	// returns whichever row is current afterwards.
	InitDefault(ctx context.Context, db DBTX, rate decimal.Decimal, at time.Time) (*domain.CommissionRate, error)

	// UpdateCurrent replaces the singleton row's rate
	UpdateCurrent(ctx context.Context, db DBTX, rate decimal.Decimal, updatedBy string, at time.Time) error

	// AppendHistory appends an immutable rate-change record
	AppendHistory(ctx context.Context, db DBTX, change *domain.CommissionRateChange) error

	// ListHistory returns history ordered by changed_at ascending,
	// optionally bounded
	ListHistory(ctx context.Context, db DBTX, from, to *time.Time) ([]domain.CommissionRateChange, error)
}
