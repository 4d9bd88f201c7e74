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
)

const paymentColumns = `
	id, application_id, payer_user_id, landlord_id, amount, currency,
	status, kind, is_escrow, escrow_status, escrow_held_at, escrow_expires_at,
	escrow_released_at, escrow_interest, commission_rate, commission_amount,
	landlord_net_amount, external_reference, failure_reason, refund_amount,
	refund_reason, property_visited, documents_received, allocated_to_payout,
	payout_request_id, payout_allocated_at, created_at, updated_at`

// PaymentRepository implements ports.PaymentRepository with hand-written pgx SQL
type PaymentRepository struct {
	db ports.DBTX
}

// NewPaymentRepository creates a new payment entry repository
func NewPaymentRepository(db ports.DBPort) *PaymentRepository {
	return &PaymentRepository{db: db.GetDB()}
}

// CreateIdempotent inserts the entry unless the external reference exists
func (r *PaymentRepository) CreateIdempotent(ctx context.Context, db ports.DBTX, entry *domain.PaymentEntry) (bool, error) {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return false, fmt.Errorf("invalid payment entry ID: %w", err)
	}

	rate, err := decimalToNumeric(entry.CommissionRate)
	if err != nil {
		return false, err
	}

	tag, err := executor(db, r.db).Exec(ctx, `
		INSERT INTO payment_entries (
			id, application_id, payer_user_id, landlord_id, amount, currency,
			status, kind, is_escrow, escrow_status, escrow_held_at,
			escrow_expires_at, escrow_interest, commission_rate,
			commission_amount, landlord_net_amount, external_reference,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,0,$13,$14,$15,$16,$17,$17)
		ON CONFLICT (external_reference) DO NOTHING`,
		id, entry.ApplicationID, entry.PayerUserID, entry.LandlordID,
		entry.Amount, entry.Currency, string(entry.Status), string(entry.Kind),
		entry.IsEscrow, nullText(string(entry.EscrowStatus)),
		nullTime(entry.EscrowHeldAt), nullTime(entry.EscrowExpiresAt),
		rate, entry.CommissionAmount, entry.LandlordNetAmount,
		entry.ExternalReference, entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create payment entry: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a payment entry by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentEntry, error) {
	row := executor(db, r.db).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_entries WHERE id = $1`, id)

	entry, err := scanPaymentEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment entry by id: %w", err)
	}
	return entry, nil
}

// GetByExternalReference retrieves a payment entry by the gateway idempotency key
func (r *PaymentRepository) GetByExternalReference(ctx context.Context, db ports.DBTX, externalReference string) (*domain.PaymentEntry, error) {
	row := executor(db, r.db).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_entries WHERE external_reference = $1`, externalReference)

	entry, err := scanPaymentEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment entry by external reference: %w", err)
	}
	return entry, nil
}

// ConfirmPending transitions pending -> completed, arming escrow on rent entries
func (r *PaymentRepository) ConfirmPending(ctx context.Context, db ports.DBTX, externalReference string, heldAt, expiresAt time.Time) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			status = 'completed',
			escrow_status = CASE WHEN is_escrow THEN 'held' ELSE escrow_status END,
			escrow_held_at = CASE WHEN is_escrow THEN $2 ELSE escrow_held_at END,
			escrow_expires_at = CASE WHEN is_escrow THEN $3 ELSE escrow_expires_at END,
			updated_at = now()
		WHERE external_reference = $1 AND status = 'pending'`,
		externalReference, heldAt, expiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("confirm pending payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed transitions pending -> failed with the gateway reason
func (r *PaymentRepository) MarkFailed(ctx context.Context, db ports.DBTX, externalReference, reason string) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			status = 'failed',
			failure_reason = $2,
			updated_at = now()
		WHERE external_reference = $1 AND status = 'pending'`,
		externalReference, reason,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRefunded transitions completed -> refunded
func (r *PaymentRepository) MarkRefunded(ctx context.Context, db ports.DBTX, id uuid.UUID, refundAmount int64, reason string) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			status = 'refunded',
			refund_amount = $2,
			refund_reason = $3,
			updated_at = now()
		WHERE id = $1 AND status = 'completed'`,
		id, refundAmount, reason,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment refunded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseEscrow transitions escrow held -> released exactly once
func (r *PaymentRepository) ReleaseEscrow(ctx context.Context, db ports.DBTX, id uuid.UUID, interest, netAmount int64, releasedAt time.Time) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			escrow_status = 'released',
			escrow_released_at = $4,
			escrow_interest = $2,
			landlord_net_amount = $3,
			updated_at = now()
		WHERE id = $1 AND is_escrow AND escrow_status = 'held'`,
		id, interest, netAmount, releasedAt,
	)
	if err != nil {
		return false, fmt.Errorf("release escrow: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetInspectionFlags updates the informational inspection flags
func (r *PaymentRepository) SetInspectionFlags(ctx context.Context, db ports.DBTX, id uuid.UUID, propertyVisited, documentsReceived *bool) error {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			property_visited = COALESCE($2, property_visited),
			documents_received = COALESCE($3, documents_received),
			updated_at = now()
		WHERE id = $1`,
		id, propertyVisited, documentsReceived,
	)
	if err != nil {
		return fmt.Errorf("set inspection flags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// ClaimForPayout binds one entry to a payout request; losers match zero rows
func (r *PaymentRepository) ClaimForPayout(ctx context.Context, db ports.DBTX, id uuid.UUID, payoutRequestID string, at time.Time) (bool, error) {
	payoutID, err := uuid.Parse(payoutRequestID)
	if err != nil {
		return false, fmt.Errorf("invalid payout request ID: %w", err)
	}

	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			allocated_to_payout = true,
			payout_request_id = $2,
			payout_allocated_at = $3,
			updated_at = now()
		WHERE id = $1
		  AND allocated_to_payout = false
		  AND status = 'completed'
		  AND (NOT is_escrow OR escrow_status = 'released')`,
		id, payoutID, at,
	)
	if err != nil {
		return false, fmt.Errorf("claim payment for payout: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseClaims deallocates every entry bound to the payout request
func (r *PaymentRepository) ReleaseClaims(ctx context.Context, db ports.DBTX, payoutRequestID string) (int64, error) {
	payoutID, err := uuid.Parse(payoutRequestID)
	if err != nil {
		return 0, fmt.Errorf("invalid payout request ID: %w", err)
	}

	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payment_entries SET
			allocated_to_payout = false,
			payout_request_id = NULL,
			payout_allocated_at = NULL,
			updated_at = now()
		WHERE payout_request_id = $1`,
		payoutID,
	)
	if err != nil {
		return 0, fmt.Errorf("release payout claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListEligibleForPayout returns claimable entries for the landlord, oldest first
func (r *PaymentRepository) ListEligibleForPayout(ctx context.Context, db ports.DBTX, landlordID string, limit int32) ([]*domain.PaymentEntry, error) {
	rows, err := executor(db, r.db).Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_entries
		WHERE landlord_id = $1
		  AND status = 'completed'
		  AND allocated_to_payout = false
		  AND (NOT is_escrow OR escrow_status = 'released')
		ORDER BY created_at ASC
		LIMIT $2`,
		landlordID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible payments: %w", err)
	}
	defer rows.Close()

	return collectPaymentEntries(rows)
}

// ListForLandlord lists ledger entries for statements
func (r *PaymentRepository) ListForLandlord(ctx context.Context, db ports.DBTX, landlordID string, filter ports.PaymentFilter) ([]*domain.PaymentEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := executor(db, r.db).Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_entries
		WHERE landlord_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`,
		landlordID, nullText(string(filter.Status)),
		nullBoundary(filter.From), nullBoundary(filter.To),
		limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments for landlord: %w", err)
	}
	defer rows.Close()

	return collectPaymentEntries(rows)
}

// ListRelatedPaymentIDs returns the ids of entries allocated to a payout request
func (r *PaymentRepository) ListRelatedPaymentIDs(ctx context.Context, db ports.DBTX, payoutRequestID string) ([]string, error) {
	payoutID, err := uuid.Parse(payoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("invalid payout request ID: %w", err)
	}

	rows, err := executor(db, r.db).Query(ctx, `
		SELECT id FROM payment_entries
		WHERE payout_request_id = $1
		ORDER BY created_at ASC`,
		payoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("list related payments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan related payment id: %w", err)
		}
		ids = append(ids, id.String())
	}
	return ids, rows.Err()
}

// AggregateBalance sums the ledger into a landlord balance view
func (r *PaymentRepository) AggregateBalance(ctx context.Context, db ports.DBTX, landlordID string) (*domain.LandlordBalance, error) {
	balance := &domain.LandlordBalance{LandlordID: landlordID}

	err := executor(db, r.db).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(commission_amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(escrow_interest) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(landlord_net_amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(landlord_net_amount) FILTER (
				WHERE status = 'completed'
				  AND allocated_to_payout = false
				  AND (NOT is_escrow OR escrow_status = 'released')), 0),
			COALESCE(MAX(currency), '')
		FROM payment_entries
		WHERE landlord_id = $1`,
		landlordID,
	).Scan(
		&balance.TotalGrossEarnings,
		&balance.TotalCommissionPaid,
		&balance.TotalEscrowInterest,
		&balance.TotalNetEarnings,
		&balance.AvailableBalance,
		&balance.Currency,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate landlord balance: %w", err)
	}
	return balance, nil
}

// ListEarnings returns per-payment statement lines inside a window
func (r *PaymentRepository) ListEarnings(ctx context.Context, db ports.DBTX, landlordID string, from, to *time.Time) ([]domain.EarningsLine, error) {
	rows, err := executor(db, r.db).Query(ctx, `
		SELECT id, application_id, kind, amount, commission_amount,
		       escrow_interest, landlord_net_amount, escrow_status, created_at
		FROM payment_entries
		WHERE landlord_id = $1
		  AND status = 'completed'
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at ASC`,
		landlordID, nullBoundary(from), nullBoundary(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	defer rows.Close()

	var lines []domain.EarningsLine
	for rows.Next() {
		var (
			line         domain.EarningsLine
			id           uuid.UUID
			kind         string
			escrowStatus pgtype.Text
		)
		if err := rows.Scan(&id, &line.ApplicationID, &kind, &line.Amount,
			&line.CommissionAmount, &line.EscrowInterest, &line.NetAmount,
			&escrowStatus, &line.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan earnings line: %w", err)
		}
		line.PaymentID = id.String()
		line.Kind = domain.PaymentKind(kind)
		line.EscrowStatus = domain.EscrowStatus(escrowStatus.String)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// collectPaymentEntries drains rows into domain entries
func collectPaymentEntries(rows pgx.Rows) ([]*domain.PaymentEntry, error) {
	var entries []*domain.PaymentEntry
	for rows.Next() {
		entry, err := scanPaymentEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// scanPaymentEntry converts one row into a domain entry
func scanPaymentEntry(row pgx.Row) (*domain.PaymentEntry, error) {
	var (
		entry             domain.PaymentEntry
		id                uuid.UUID
		status, kind      string
		escrowStatus      pgtype.Text
		heldAt, expiresAt pgtype.Timestamptz
		releasedAt        pgtype.Timestamptz
		rate              pgtype.Numeric
		failureReason     pgtype.Text
		refundReason      pgtype.Text
		payoutRequestID   pgtype.UUID
		allocatedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &entry.ApplicationID, &entry.PayerUserID, &entry.LandlordID,
		&entry.Amount, &entry.Currency, &status, &kind, &entry.IsEscrow,
		&escrowStatus, &heldAt, &expiresAt, &releasedAt, &entry.EscrowInterest,
		&rate, &entry.CommissionAmount, &entry.LandlordNetAmount,
		&entry.ExternalReference, &failureReason, &entry.RefundAmount,
		&refundReason, &entry.PropertyVisited, &entry.DocumentsReceived,
		&entry.AllocatedToPayout, &payoutRequestID, &allocatedAt,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ID = id.String()
	entry.Status = domain.PaymentStatus(status)
	entry.Kind = domain.PaymentKind(kind)
	entry.EscrowStatus = domain.EscrowStatus(escrowStatus.String)
	entry.EscrowHeldAt = timePtr(heldAt)
	entry.EscrowExpiresAt = timePtr(expiresAt)
	entry.EscrowReleasedAt = timePtr(releasedAt)
	entry.FailureReason = failureReason.String
	entry.RefundReason = refundReason.String
	entry.PayoutAllocatedAt = timePtr(allocatedAt)

	commissionRate, err := pgNumericToDecimal(rate)
	if err != nil {
		return nil, fmt.Errorf("convert commission rate: %w", err)
	}
	entry.CommissionRate = commissionRate

	if payoutRequestID.Valid {
		payoutID := uuid.UUID(payoutRequestID.Bytes).String()
		entry.PayoutRequestID = &payoutID
	}

	return &entry, nil
}
