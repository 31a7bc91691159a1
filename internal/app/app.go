// Package app wires the restore engine from configuration.  It is shared
// by the HTTP server and the reconciler CLI.
package app

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/madhatv/payment-recovery/internal/config"
	"github.com/madhatv/payment-recovery/internal/lock"
	"github.com/madhatv/payment-recovery/internal/notify"
	"github.com/madhatv/payment-recovery/internal/reconcile"
	"github.com/madhatv/payment-recovery/internal/repository"
)

// Stores are the repositories the engine and the handlers read from.
type Stores struct {
	Payments   *repository.FailedPaymentRepo
	Bookings   *repository.BookingRepo
	Orders     *repository.OrderRepo
	OrderItems *repository.OrderItemRepo
	Books      *repository.BookRepo
	Audit      *repository.AuditRepo
}

// NewStores binds every repository to db.
func NewStores(db *sql.DB) Stores {
	return Stores{
		Payments:   repository.NewFailedPaymentRepo(db),
		Bookings:   repository.NewBookingRepo(db),
		Orders:     repository.NewOrderRepo(db),
		OrderItems: repository.NewOrderItemRepo(db),
		Books:      repository.NewBookRepo(db),
		Audit:      repository.NewAuditRepo(db),
	}
}

// NewEngine builds a restore engine.  rdb may be nil; the engine then runs
// without the advisory lock.  Notifications are off when
// amqpCfg is disabled or has no url.
func NewEngine(s Stores, rdb *redis.Client, amqpCfg config.AMQPConfig, rc config.ReconcileConfig, log *zap.Logger) *reconcile.Engine {
	d := reconcile.Deps{
		Payments:   s.Payments,
		Bookings:   s.Bookings,
		Orders:     s.Orders,
		OrderItems: s.OrderItems,
		Inventory:  s.Books,
		Audit:      s.Audit,
		Logger:     log,
	}
	if rdb != nil {
		d.Locker = lock.NewRedisLocker(rdb, rc.LockPrefix)
	}
	if amqpCfg.Enabled && amqpCfg.URL != "" {
		d.Notifier = notify.NewPublisher(amqpCfg.URL, amqpCfg.Queue, log)
	}
	return reconcile.NewEngine(d, reconcile.Options{
		CallTimeout:  rc.CallTimeout,
		LockTTL:      rc.LockTTL,
		StockRetries: rc.StockRetries,
	})
}
