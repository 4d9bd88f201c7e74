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

const payoutColumns = `
	id, landlord_id, amount, requested_amount, currency, payment_method,
	bank_name, bank_account_number, bank_account_name, connect_account_id,
	status, requested_at, reviewed_by, reviewed_at, review_notes,
	rejection_reason, transfer_id, processed_at, created_at, updated_at`

// PayoutRepository implements ports.PayoutRepository with hand-written pgx SQL
type PayoutRepository struct {
	db ports.DBTX
}

// NewPayoutRepository creates a new payout request repository
func NewPayoutRepository(db ports.DBPort) *PayoutRepository {
	return &PayoutRepository{db: db.GetDB()}
}

// Create persists a new pending payout request
func (r *PayoutRepository) Create(ctx context.Context, db ports.DBTX, request *domain.PayoutRequest) error {
	id, err := uuid.Parse(request.ID)
	if err != nil {
		return fmt.Errorf("invalid payout request ID: %w", err)
	}

	var bankName, bankAccountNumber, bankAccountName string
	if request.BankDetails != nil {
		bankName = request.BankDetails.BankName
		bankAccountNumber = request.BankDetails.AccountNumber
		bankAccountName = request.BankDetails.AccountName
	}

	_, err = executor(db, r.db).Exec(ctx, `
		INSERT INTO payout_requests (
			id, landlord_id, amount, requested_amount, currency,
			payment_method, bank_name, bank_account_number, bank_account_name,
			connect_account_id, status, requested_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12,$12)`,
		id, request.LandlordID, request.Amount, request.RequestedAmount,
		request.Currency, string(request.Method), nullText(bankName),
		nullText(bankAccountNumber), nullText(bankAccountName),
		nullText(request.ConnectAccountID), string(request.Status),
		request.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("create payout request: %w", err)
	}
	return nil
}

// GetByID retrieves a payout request by its ID
func (r *PayoutRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PayoutRequest, error) {
	row := executor(db, r.db).QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1`, id)

	request, err := scanPayoutRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("get payout request by id: %w", err)
	}
	return request, nil
}

// Approve transitions pending -> approved
func (r *PayoutRepository) Approve(ctx context.Context, db ports.DBTX, id uuid.UUID, reviewedBy, notes string, at time.Time) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payout_requests SET
			status = 'approved',
			reviewed_by = $2,
			reviewed_at = $3,
			review_notes = $4,
			updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, reviewedBy, at, nullText(notes),
	)
	if err != nil {
		return false, fmt.Errorf("approve payout request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reject transitions pending|approved -> rejected
func (r *PayoutRepository) Reject(ctx context.Context, db ports.DBTX, id uuid.UUID, reviewedBy, reason, notes string, at time.Time) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payout_requests SET
			status = 'rejected',
			reviewed_by = $2,
			reviewed_at = $3,
			rejection_reason = $4,
			review_notes = $5,
			updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'approved')`,
		id, reviewedBy, at, reason, nullText(notes),
	)
	if err != nil {
		return false, fmt.Errorf("reject payout request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkProcessed transitions approved -> processed with the transfer reference.
// The review timestamp stays as the approver left it.
func (r *PayoutRepository) MarkProcessed(ctx context.Context, db ports.DBTX, id uuid.UUID, transferID string, at time.Time) (bool, error) {
	tag, err := executor(db, r.db).Exec(ctx, `
		UPDATE payout_requests SET
			status = 'processed',
			transfer_id = $2,
			processed_at = $3,
			updated_at = now()
		WHERE id = $1 AND status = 'approved'`,
		id, transferID, at,
	)
	if err != nil {
		return false, fmt.Errorf("mark payout processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByLandlord lists a landlord's requests, newest first
func (r *PayoutRepository) ListByLandlord(ctx context.Context, db ports.DBTX, landlordID string, limit, offset int32) ([]*domain.PayoutRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := executor(db, r.db).Query(ctx, `
		SELECT `+payoutColumns+`
		FROM payout_requests
		WHERE landlord_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3`,
		landlordID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list payout requests by landlord: %w", err)
	}
	defer rows.Close()

	return collectPayoutRequests(rows)
}

// ListByStatus lists requests in a review state, oldest first
func (r *PayoutRepository) ListByStatus(ctx context.Context, db ports.DBTX, status domain.PayoutStatus, limit, offset int32) ([]*domain.PayoutRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := executor(db, r.db).Query(ctx, `
		SELECT `+payoutColumns+`
		FROM payout_requests
		WHERE status = $1
		ORDER BY requested_at ASC
		LIMIT $2 OFFSET $3`,
		string(status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list payout requests by status: %w", err)
	}
	defer rows.Close()

	return collectPayoutRequests(rows)
}

func collectPayoutRequests(rows pgx.Rows) ([]*domain.PayoutRequest, error) {
	var requests []*domain.PayoutRequest
	for rows.Next() {
		request, err := scanPayoutRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanPayoutRequest(row pgx.Row) (*domain.PayoutRequest, error) {
	var (
		request           domain.PayoutRequest
		id                uuid.UUID
		method, status    string
		bankName          pgtype.Text
		bankAccountNumber pgtype.Text
		bankAccountName   pgtype.Text
		connectAccountID  pgtype.Text
		reviewedBy        pgtype.Text
		reviewedAt        pgtype.Timestamptz
		reviewNotes       pgtype.Text
		rejectionReason   pgtype.Text
		transferID        pgtype.Text
		processedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &request.LandlordID, &request.Amount, &request.RequestedAmount,
		&request.Currency, &method, &bankName, &bankAccountNumber,
		&bankAccountName, &connectAccountID, &status, &request.RequestedAt,
		&reviewedBy, &reviewedAt, &reviewNotes, &rejectionReason, &transferID,
		&processedAt, &request.CreatedAt, &request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.ID = id.String()
	request.Method = domain.PayoutMethod(method)
	request.Status = domain.PayoutStatus(status)
	request.ConnectAccountID = connectAccountID.String
	request.ReviewedBy = reviewedBy.String
	request.ReviewedAt = timePtr(reviewedAt)
	request.ReviewNotes = reviewNotes.String
	request.RejectionReason = rejectionReason.String
	request.TransferID = transferID.String
	request.ProcessedAt = timePtr(processedAt)

	if bankName.Valid || bankAccountNumber.Valid {
		request.BankDetails = &domain.BankDetails{
			BankName:      bankName.String,
			AccountNumber: bankAccountNumber.String,
			AccountName:   bankAccountName.String,
		}
	}

	return &request, nil
}
