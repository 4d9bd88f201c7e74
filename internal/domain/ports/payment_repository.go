package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentwise/settlement-service/internal/domain"
)

// PaymentFilter narrows statement queries
type PaymentFilter struct {
	From   *time.Time
	To     *time.Time
	Status domain.PaymentStatus
	Limit  int32
	Offset int32
}

// PaymentRepository defines the interface for ledger persistence.
// Every mutation is a single conditional update so concurrent duplicate
// delivery and racing claimants stay safe without application locks.
type PaymentRepository interface {
	// CreateIdempotent inserts the entry unless one with the same external
	// reference already exists. Returns false when the insert was skipped.
	CreateIdempotent(ctx context.Context, db DBTX, entry *domain.PaymentEntry) (bool, error)

	// GetByID retrieves an entry by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PaymentEntry, error)

	// GetByExternalReference retrieves an entry by the gateway idempotency key
	GetByExternalReference(ctx context.Context, db DBTX, externalReference string) (*domain.PaymentEntry, error)

	// ConfirmPending transitions pending -> completed, arming the escrow hold
	// on rent entries. Returns false when no pending entry matched.
	ConfirmPending(ctx context.Context, db DBTX, externalReference string, heldAt, expiresAt time.Time) (bool, error)

	// MarkFailed transitions pending -> failed, storing the gateway reason.
	// Returns false when no pending entry matched.
	MarkFailed(ctx context.Context, db DBTX, externalReference, reason string) (bool, error)

	// MarkRefunded transitions completed -> refunded. Returns false when the
	// entry was not in completed state.
	MarkRefunded(ctx context.Context, db DBTX, id uuid.UUID, refundAmount int64, reason string) (bool, error)

	// ReleaseEscrow transitions escrow held -> released, recording the interest
	// deduction and recomputed net. Guarded on escrow_status=held so a second
	// release matches zero rows.
	ReleaseEscrow(ctx context.Context, db DBTX, id uuid.UUID, interest, netAmount int64, releasedAt time.Time) (bool, error)

	// SetInspectionFlags updates the informational propertyVisited /
	// documentsReceived flags. Nil leaves a flag untouched.
	SetInspectionFlags(ctx context.Context, db DBTX, id uuid.UUID, propertyVisited, documentsReceived *bool) error

	// ClaimForPayout binds one entry to a payout request, guarded on
	// allocated_to_payout=false. Returns false when a concurrent request won.
	ClaimForPayout(ctx context.Context, db DBTX, id uuid.UUID, payoutRequestID string, at time.Time) (bool, error)

	// ReleaseClaims deallocates every entry bound to the payout request and
	// returns how many were released.
	ReleaseClaims(ctx context.Context, db DBTX, payoutRequestID string) (int64, error)

	// ListEligibleForPayout returns unallocated, completed, non-held entries
	// for the landlord, oldest first.
	ListEligibleForPayout(ctx context.Context, db DBTX, landlordID string, limit int32) ([]*domain.PaymentEntry, error)

	// ListForLandlord lists ledger entries for statements
	ListForLandlord(ctx context.Context, db DBTX, landlordID string, filter PaymentFilter) ([]*domain.PaymentEntry, error)

	// ListRelatedPaymentIDs returns the ids of entries allocated to a payout request
	ListRelatedPaymentIDs(ctx context.Context, db DBTX, payoutRequestID string) ([]string, error)

	// AggregateBalance sums the ledger into a landlord balance view
	AggregateBalance(ctx context.Context, db DBTX, landlordID string) (*domain.LandlordBalance, error)

	// ListEarnings returns per-payment statement lines inside a window
	ListEarnings(ctx context.Context, db DBTX, landlordID string, from, to *time.Time) ([]domain.EarningsLine, error)
}
