package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// Service writes audit events for sensitive actions. Writes are best-effort:
// a failure is logged and swallowed so it can never fail the financial
// mutation being audited.
type Service struct {
	repo   ports.AuditRepository
	logger ports.Logger
}

// NewService creates a new audit service
func NewService(repo ports.AuditRepository, logger ports.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Record appends one audit event
func (s *Service) Record(ctx context.Context, actor domain.Principal, action, entityType, entityID string, before, after map[string]interface{}) {
	event := &domain.AuditEvent{
		ID:         uuid.New().String(),
		Action:     action,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		IP:         actor.IP,
		UserAgent:  actor.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, nil, event); err != nil {
		s.logger.Warn("audit event write failed",
			ports.String("action", action),
			ports.String("entity_type", entityType),
			ports.String("entity_id", entityID),
			ports.String("error", err.Error()))
	}
}
