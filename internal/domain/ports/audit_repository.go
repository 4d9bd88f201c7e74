package ports

import (
	"context"

	"github.com/rentwise/settlement-service/internal/domain"
)

// AuditRepository appends audit events. Writes are best-effort; callers log
// failures and continue.
type AuditRepository interface {
	Insert(ctx context.Context, db DBTX, event *domain.AuditEvent) error
}

// AuditTrail is the service-facing recording interface. Implementations must
// never return an error to the caller; failures are logged and dropped.
type AuditTrail interface {
	Record(ctx context.Context, actor domain.Principal, action, entityType, entityID string, before, after map[string]interface{})
}
