package model

import "time"

const (
	AuditActionRestore = "payment.restore"

	AuditOutcomeRestored = "restored"
	AuditOutcomeFailed   = "failed"
	AuditOutcomeRejected = "rejected"
)

// AuditLog is one entry of the back-office audit trail.
type AuditLog struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Actor      string    `json:"actor"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
