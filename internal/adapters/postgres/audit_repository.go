package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// AuditRepository appends audit events to the audit_events outbox table
type AuditRepository struct {
	db ports.DBTX
}

// NewAuditRepository creates a new audit event repository
func NewAuditRepository(db ports.DBPort) *AuditRepository {
	return &AuditRepository{db: db.GetDB()}
}

// Insert appends one audit event
func (r *AuditRepository) Insert(ctx context.Context, db ports.DBTX, event *domain.AuditEvent) error {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return fmt.Errorf("invalid audit event ID: %w", err)
	}

	before, err := marshalSnapshot(event.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(event.After)
	if err != nil {
		return err
	}

	_, err = executor(db, r.db).Exec(ctx, `
		INSERT INTO audit_events (
			id, action, actor_id, actor_role, entity_type, entity_id,
			before, after, ip, user_agent, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, event.Action, event.ActorID, string(event.ActorRole),
		event.EntityType, event.EntityID, before, after,
		nullText(event.IP), nullText(event.UserAgent), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func marshalSnapshot(snapshot map[string]interface{}) ([]byte, error) {
	if snapshot == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return data, nil
}
