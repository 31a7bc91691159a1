package reconcile

import (
	"context"

	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/repository"
)

// FailedPaymentStore holds the orphaned payment records.  Update must be
// conditional on the current status being one of expected and return
// repository.ErrStatusChanged when it is not.
type FailedPaymentStore interface {
	List(ctx context.Context, f repository.FailedPaymentFilter) ([]model.FailedPayment, error)
	Get(ctx context.Context, id string) (model.FailedPayment, error)
	Update(ctx context.Context, id string, expected []model.RestoreStatus, p repository.FailedPaymentPatch) (model.FailedPayment, error)
}

// BookingStore creates bookings.  Rows already stored under the same
// idempotency key are returned with Existing set.
type BookingStore interface {
	BulkCreate(ctx context.Context, bookings []model.Booking) ([]model.Booking, error)
}

// OrderStore creates orders, idempotent by key.
type OrderStore interface {
	Create(ctx context.Context, o model.Order) (model.Order, error)
}

// OrderItemStore creates order items, idempotent by key.
type OrderItemStore interface {
	BulkCreate(ctx context.Context, items []model.OrderItem) ([]model.OrderItem, error)
}

// InventoryStore reads and updates book stock.  UpdateStock returns
// repository.ErrConflict when the row moved past expectedVersion.
type InventoryStore interface {
	Get(ctx context.Context, id string) (model.Book, error)
	UpdateStock(ctx context.Context, id string, stock int, expectedVersion uint32) (model.Book, error)
}

var (
	_ FailedPaymentStore = (*repository.FailedPaymentRepo)(nil)
	_ BookingStore       = (*repository.BookingRepo)(nil)
	_ OrderStore         = (*repository.OrderRepo)(nil)
	_ OrderItemStore     = (*repository.OrderItemRepo)(nil)
	_ InventoryStore     = (*repository.BookRepo)(nil)
)
