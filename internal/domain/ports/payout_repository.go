package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentwise/settlement-service/internal/domain"
)

// PayoutRepository defines the interface for payout request persistence.
// State transitions are conditional updates guarded on the current status.
type PayoutRepository interface {
	// Create persists a new pending payout request
	Create(ctx context.Context, db DBTX, request *domain.PayoutRequest) error

	// GetByID retrieves a payout request by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PayoutRequest, error)

	// Approve transitions pending -> approved. Returns false when the request
	// was not pending.
	Approve(ctx context.Context, db DBTX, id uuid.UUID, reviewedBy, notes string, at time.Time) (bool, error)

	// Reject transitions pending|approved -> rejected. Returns false when the
	// request was already terminal.
	Reject(ctx context.Context, db DBTX, id uuid.UUID, reviewedBy, reason, notes string, at time.Time) (bool, error)

	// MarkProcessed transitions approved -> processed, recording the external
	// transfer reference. Returns false when the request was not approved.
	MarkProcessed(ctx context.Context, db DBTX, id uuid.UUID, transferID string, at time.Time) (bool, error)

	// ListByLandlord lists a landlord's requests, newest first
	ListByLandlord(ctx context.Context, db DBTX, landlordID string, limit, offset int32) ([]*domain.PayoutRequest, error)

	// ListByStatus lists requests in a review state, oldest first
	ListByStatus(ctx context.Context, db DBTX, status domain.PayoutStatus, limit, offset int32) ([]*domain.PayoutRequest, error)
}
