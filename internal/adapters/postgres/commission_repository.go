package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// CommissionRepository implements ports.CommissionRepository.
// The current rate lives in a single-row settings table; history is append-only.
type CommissionRepository struct {
	db ports.DBTX
}

// NewCommissionRepository creates a new commission rate repository
func NewCommissionRepository(db ports.DBPort) *CommissionRepository {
	return &CommissionRepository{db: db.GetDB()}
}

// GetCurrent returns the current rate, or ErrRateNotFound before first init
func (r *CommissionRepository) GetCurrent(ctx context.Context, db ports.DBTX) (*domain.CommissionRate, error) {
	row := executor(db, r.db).QueryRow(ctx, `
		SELECT rate, effective_from, last_updated_by, last_updated_at
		FROM commission_settings WHERE id = 1`)

	current, err := scanCommissionRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRateNotFound
		}
		return nil, fmt.Errorf("get current commission rate: %w", err)
	}
	return current, nil
}

// GetCurrentForUpdate reads the current rate under FOR UPDATE. A concurrent
// updater blocks here until the holding transaction commits, then sees the
// committed rate, so history records chain correctly.
func (r *CommissionRepository) GetCurrentForUpdate(ctx context.Context, db ports.DBTX) (*domain.CommissionRate, error) {
	row := executor(db, r.db).QueryRow(ctx, `
		SELECT rate, effective_from, last_updated_by, last_updated_at
		FROM commission_settings WHERE id = 1
		FOR UPDATE`)

	current, err := scanCommissionRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRateNotFound
		}
		return nil, fmt.Errorf("lock current commission rate: %w", err)
	}
	return current, nil
}

// InitDefault inserts the default singleton row if none exists and returns
// whichever row is current afterwards. Safe under concurrent first reads.
func (r *CommissionRepository) InitDefault(ctx context.Context, db ports.DBTX, rate decimal.Decimal, at time.Time) (*domain.CommissionRate, error) {
	numeric, err := decimalToNumeric(rate)
	if err != nil {
		return nil, err
	}

	_, err = executor(db, r.db).Exec(ctx, `
		INSERT INTO commission_settings (id, rate, effective_from, last_updated_at)
		VALUES (1, $1, $2, $2)
		ON CONFLICT (id) DO NOTHING`,
		numeric, at,
	)
	if err != nil {
		return nil, fmt.Errorf("init default commission rate: %w", err)
	}

	return r.GetCurrent(ctx, db)
}

// UpdateCurrent replaces the singleton row's rate
func (r *CommissionRepository) UpdateCurrent(ctx context.Context, db ports.DBTX, rate decimal.Decimal, updatedBy string, at time.Time) error {
	numeric, err := decimalToNumeric(rate)
	if err != nil {
		return err
	}

	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE commission_settings SET
			rate = $1,
			effective_from = $2,
			last_updated_by = $3,
			last_updated_at = $2
		WHERE id = 1`,
		numeric, at, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("update commission rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRateNotFound
	}
	return nil
}

// AppendHistory appends an immutable rate-change record
func (r *CommissionRepository) AppendHistory(ctx context.Context, db ports.DBTX, change *domain.CommissionRateChange) error {
	id, err := uuid.Parse(change.ID)
	if err != nil {
		return fmt.Errorf("invalid history record ID: %w", err)
	}

	rate, err := decimalToNumeric(change.Rate)
	if err != nil {
		return err
	}
	previous, err := decimalToNumeric(change.PreviousRate)
	if err != nil {
		return err
	}

	_, err = executor(db, r.db).Exec(ctx, `
		INSERT INTO commission_rate_history (id, rate, previous_rate, reason, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, rate, previous, change.Reason, change.ChangedBy, change.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("append rate history: %w", err)
	}
	return nil
}

// ListHistory returns history ordered by changed_at ascending
func (r *CommissionRepository) ListHistory(ctx context.Context, db ports.DBTX, from, to *time.Time) ([]domain.CommissionRateChange, error) {
	rows, err := executor(db, r.db).Query(ctx, `
		SELECT id, rate, previous_rate, reason, changed_by, changed_at
		FROM commission_rate_history
		WHERE ($1::timestamptz IS NULL OR changed_at >= $1)
		  AND ($2::timestamptz IS NULL OR changed_at <= $2)
		ORDER BY changed_at ASC`,
		nullBoundary(from), nullBoundary(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list rate history: %w", err)
	}
	defer rows.Close()

	var changes []domain.CommissionRateChange
	for rows.Next() {
		var (
			change   domain.CommissionRateChange
			id       uuid.UUID
			rate     pgtype.Numeric
			previous pgtype.Numeric
		)
		if err := rows.Scan(&id, &rate, &previous, &change.Reason, &change.ChangedBy, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan rate history: %w", err)
		}
		change.ID = id.String()
		if change.Rate, err = pgNumericToDecimal(rate); err != nil {
			return nil, err
		}
		if change.PreviousRate, err = pgNumericToDecimal(previous); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

func scanCommissionRate(row pgx.Row) (*domain.CommissionRate, error) {
	var (
		current   domain.CommissionRate
		rate      pgtype.Numeric
		updatedBy pgtype.Text
	)
	if err := row.Scan(&rate, &current.EffectiveFrom, &updatedBy, &current.LastUpdatedAt); err != nil {
		return nil, err
	}

	converted, err := pgNumericToDecimal(rate)
	if err != nil {
		return nil, fmt.Errorf("convert rate: %w", err)
	}
	current.Rate = converted
	current.LastUpdatedBy = updatedBy.String
	return &current, nil
}
