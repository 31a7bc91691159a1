package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/madhatv/payment-recovery/internal/model"
)

// AuditRepo appends to and reads the audit_logs table.
type AuditRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditRepo returns an AuditRepo bound to db.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record inserts an audit entry.  ID and CreatedAt are filled in when empty.
func (r *AuditRepo) Record(ctx context.Context, e model.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, actor, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.EntityType, e.EntityID, e.Actor, e.Outcome, e.Detail, e.CreatedAt)
	return err
}

// List returns audit entries, newest first, optionally restricted to one
// entity.
func (r *AuditRepo) List(ctx context.Context, entityID string, limit int) ([]model.AuditLog, error) {
	q := `SELECT id, action, entity_type, entity_id, actor, outcome, detail, created_at FROM audit_logs`
	args := make([]any, 0, 2)
	if entityID != "" {
		q += ` WHERE entity_id = ?`
		args = append(args, entityID)
	}
	q += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limitOrDefault(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AuditLog, 0)
	for rows.Next() {
		var e model.AuditLog
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.Actor, &e.Outcome, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Detail = detail.String
		out = append(out, e)
	}
	return out, rows.Err()
}
