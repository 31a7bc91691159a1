package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/notify"
	"github.com/madhatv/payment-recovery/internal/repository"
)

// noticeFunc renders the confirmation for a recipient.
type noticeFunc func(to string) (notify.Message, error)

// The restore steps also report replay: every row they returned was
// already stored by an earlier attempt.

func (e *Engine) restoreBookings(ctx context.Context, rec model.FailedPayment, data model.PaymentData, out *Outcome) (noticeFunc, bool, error) {
	drafts := buildBookings(rec, data.Bookings)

	cctx, cancel := e.call(ctx)
	created, err := e.d.Bookings.BulkCreate(cctx, drafts)
	cancel()
	if err != nil {
		return nil, false, &PersistenceError{Op: "create bookings", Err: err}
	}
	if len(created) != len(drafts) {
		return nil, false, &PersistenceError{Op: "create bookings", Err: fmt.Errorf("stored %d of %d bookings", len(created), len(drafts))}
	}
	replay := true
	for _, b := range created {
		out.CreatedIDs = append(out.CreatedIDs, b.ID)
		replay = replay && b.Existing
	}
	out.RestoredOrderID = bookingsRestoredID(created)

	return func(to string) (notify.Message, error) {
		return BookingInvoice(rec, to, created)
	}, replay, nil
}

func (e *Engine) restoreBooks(ctx context.Context, log *zap.Logger, rec model.FailedPayment, data model.PaymentData, out *Outcome) (noticeFunc, bool, error) {
	cctx, cancel := e.call(ctx)
	order, err := e.d.Orders.Create(cctx, buildOrder(rec, data.Books))
	cancel()
	if err != nil {
		return nil, false, &PersistenceError{Op: "create order", Err: err}
	}
	out.CreatedIDs = append(out.CreatedIDs, order.ID)
	out.RestoredOrderID = order.ID

	drafts := buildOrderItems(rec, order.ID, data.Books.Cart)
	cctx, cancel = e.call(ctx)
	items, err := e.d.OrderItems.BulkCreate(cctx, drafts)
	cancel()
	if err != nil {
		return nil, false, &PersistenceError{Op: "create order items", Err: err}
	}
	if len(items) != len(drafts) {
		return nil, false, &PersistenceError{Op: "create order items", Err: fmt.Errorf("stored %d of %d items", len(items), len(drafts))}
	}
	for _, it := range items {
		out.CreatedIDs = append(out.CreatedIDs, it.ID)
	}

	// Stock is only taken for lines inserted by this attempt; lines found
	// from an earlier attempt were already counted.
	replay := order.Existing
	for _, it := range items {
		if it.Existing {
			continue
		}
		replay = false
		adj, err := e.decrementStock(ctx, it.BookID, it.Quantity)
		if err != nil {
			log.Warn("stock update failed", zap.String("book_id", it.BookID), zap.Int("quantity", it.Quantity), zap.Error(err))
			out.warn(fmt.Sprintf("stock not updated for book %s: %v", it.BookID, err))
			continue
		}
		out.StockAdjustments = append(out.StockAdjustments, adj)
	}

	return func(to string) (notify.Message, error) {
		return OrderInvoice(to, order, items)
	}, replay, nil
}

// decrementStock lowers a book's stock by qty, never below zero.  The
// update is version checked and retried when another writer got there
// first.
func (e *Engine) decrementStock(ctx context.Context, bookID string, qty int) (StockAdjustment, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.StockRetries; attempt++ {
		cctx, cancel := e.call(ctx)
		book, err := e.d.Inventory.Get(cctx, bookID)
		cancel()
		if err != nil {
			return StockAdjustment{}, err
		}
		next := max(0, book.StockQuantity-qty)

		cctx, cancel = e.call(ctx)
		updated, err := e.d.Inventory.UpdateStock(cctx, bookID, next, book.Version)
		cancel()
		if errors.Is(err, repository.ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return StockAdjustment{}, err
		}
		return StockAdjustment{BookID: bookID, Quantity: qty, Before: book.StockQuantity, After: updated.StockQuantity}, nil
	}
	return StockAdjustment{}, fmt.Errorf("gave up after %d attempts: %w", e.opts.StockRetries+1, lastErr)
}

// notify sends the confirmation.  Nothing here can fail the restore; any
// problem becomes a warning on the outcome.
func (e *Engine) notify(ctx context.Context, log *zap.Logger, to string, render noticeFunc, out *Outcome) {
	if e.d.Notifier == nil || render == nil {
		return
	}
	if to == "" {
		out.warn("notification skipped: no email address on record")
		return
	}
	msg, err := render(to)
	if err != nil {
		log.Warn("render notification", zap.Error(err))
		out.warn("notification not sent: " + err.Error())
		return
	}
	cctx, cancel := e.call(ctx)
	defer cancel()
	if err := e.d.Notifier.Send(cctx, msg); err != nil {
		log.Warn("notification failed", zap.String("to", to), zap.Error(err))
		out.warn("notification not sent: " + err.Error())
	}
}
