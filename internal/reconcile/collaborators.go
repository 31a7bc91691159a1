package reconcile

import (
	"context"
	"time"

	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/notify"
)

// Notifier delivers confirmation messages.  Failures are reported back to
// the engine, which only logs them.
//
//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks -source=collaborators.go
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// AuditRecorder appends to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, e model.AuditLog) error
}

// Locker is an advisory lock keyed by string.  Lock returns
// lock.ErrNotAcquired when another holder owns key.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
