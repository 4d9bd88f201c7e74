package domain

import "time"

// Role is the caller's role as asserted by the surrounding auth layer
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// Principal is the authenticated caller handed to us by the host system
type Principal struct {
	UserID    string
	Role      Role
	IP        string
	UserAgent string
}

// AuditEvent is a best-effort record of a sensitive action. Writing it must
// never fail the financial mutation it describes.
type AuditEvent struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  Role                   `json:"actor_role"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	IP         string                 `json:"ip,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
