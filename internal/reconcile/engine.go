// Package reconcile restores payments that succeeded at the gateway but
// never produced their booking or order.
//
// A restore is safe to repeat: every created row carries an idempotency key
// derived from the payment id, and the record's status only changes through
// conditional updates, so two operators racing on one record end up with a
// single set of domain objects and a single RESTORED transition.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/madhatv/payment-recovery/internal/lock"
	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/repository"
)

// Deps are the collaborators of an Engine.  Notifier, Audit and Locker are
// optional.
type Deps struct {
	Payments   FailedPaymentStore
	Bookings   BookingStore
	Orders     OrderStore
	OrderItems OrderItemStore
	Inventory  InventoryStore
	Notifier   Notifier
	Audit      AuditRecorder
	Locker     Locker
	Logger     *zap.Logger
}

// Options tune an Engine.  Zero values take the defaults below.
type Options struct {
	CallTimeout  time.Duration // per external call, default 10s
	LockTTL      time.Duration // advisory lock lifetime, default 2m
	StockRetries int           // optimistic stock update retries, default 3
	Now          func() time.Time
}

// Engine runs restores.  It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	d    Deps
	opts Options
	log  *zap.Logger
}

// NewEngine returns an Engine.
func NewEngine(d Deps, opts Options) *Engine {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if opts.StockRetries <= 0 {
		opts.StockRetries = 3
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{d: d, opts: opts, log: log.Named("reconcile")}
}

func (e *Engine) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.CallTimeout)
}

// Restore loads the record with the given id and restores it on behalf of
// operator.
func (e *Engine) Restore(ctx context.Context, recordID, operator string) (Outcome, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return Outcome{RecordID: recordID}, ErrOperatorRequired
	}
	release, err := e.acquire(ctx, recordID)
	if err != nil {
		return Outcome{RecordID: recordID, Message: restoreFailedMessage(err)}, err
	}
	defer release()

	rec, err := e.get(ctx, recordID)
	if err != nil {
		return Outcome{RecordID: recordID, Message: restoreFailedMessage(err)}, err
	}
	return e.restore(ctx, rec, operator)
}

// RestoreRecord restores an already loaded record.  The status guard is
// still enforced by the store, so a stale copy cannot restore twice.
func (e *Engine) RestoreRecord(ctx context.Context, rec model.FailedPayment, operator string) (Outcome, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return newOutcome(rec), ErrOperatorRequired
	}
	release, err := e.acquire(ctx, rec.ID)
	if err != nil {
		out := newOutcome(rec)
		out.Message = restoreFailedMessage(err)
		return out, err
	}
	defer release()
	return e.restore(ctx, rec, operator)
}

// acquire takes the advisory lock for one record.  Lock errors other than
// contention are logged and the restore continues unlocked; correctness
// then rests on the conditional update and the idempotency keys.
func (e *Engine) acquire(ctx context.Context, recordID string) (func(), error) {
	if e.d.Locker == nil {
		return func() {}, nil
	}
	key := "restore:" + recordID
	cctx, cancel := e.call(ctx)
	token, err := e.d.Locker.Lock(cctx, key, e.opts.LockTTL)
	cancel()
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, ErrRestoreInProgress
	}
	if err != nil {
		e.log.Warn("restore lock unavailable, continuing without it", zap.String("record_id", recordID), zap.Error(err))
		return func() {}, nil
	}
	return func() {
		uctx, cancel := e.call(context.WithoutCancel(ctx))
		defer cancel()
		if err := e.d.Locker.Unlock(uctx, key, token); err != nil {
			e.log.Warn("release restore lock", zap.String("record_id", recordID), zap.Error(err))
		}
	}, nil
}

func (e *Engine) get(ctx context.Context, id string) (model.FailedPayment, error) {
	cctx, cancel := e.call(ctx)
	defer cancel()
	rec, err := e.d.Payments.Get(cctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.FailedPayment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.FailedPayment{}, &PersistenceError{Op: "load record", Err: err}
	}
	return rec, nil
}

func (e *Engine) restore(ctx context.Context, rec model.FailedPayment, operator string) (Outcome, error) {
	out := newOutcome(rec)
	log := e.log.With(zap.String("record_id", rec.ID), zap.String("payment_id", rec.PaymentID),
		zap.String("purpose", string(rec.Purpose)), zap.String("operator", operator))

	if rec.Status == model.StatusRestored {
		out.Message = "Payment already restored"
		return out, ErrAlreadyRestored
	}
	if !rec.Status.Restorable() {
		err := fmt.Errorf("%w: status %q", ErrNotRestorable, rec.Status)
		out.Message = restoreFailedMessage(err)
		return out, err
	}

	data, err := model.DecodePaymentData(rec.Purpose, rec.PaymentData)
	if err != nil {
		var rejectErr error
		switch {
		case errors.Is(err, model.ErrUnknownPurpose):
			rejectErr = fmt.Errorf("%w: %q", ErrUnknownPurpose, rec.Purpose)
		default:
			rejectErr = fmt.Errorf("%w: %v", ErrMissingPaymentData, err)
		}
		return e.reject(ctx, log, rec, operator, out, rejectErr)
	}

	var (
		notice noticeFunc
		replay bool
	)
	switch data.Purpose {
	case model.PurposeServiceBooking:
		notice, replay, err = e.restoreBookings(ctx, rec, data, &out)
	case model.PurposeBuyBooks:
		notice, replay, err = e.restoreBooks(ctx, log, rec, data, &out)
	}
	if err != nil {
		log.Error("restore failed", zap.Error(err))
		return e.fail(ctx, log, rec, operator, out, err)
	}

	// Nothing new was written, so another attempt may have finished the
	// restore after rec was loaded.  The customer was notified by that one.
	if replay {
		if cur, ok := e.refetch(ctx, log, rec.ID); ok && cur.Status == model.StatusRestored {
			log.Info("record restored concurrently", zap.String("restored_by", cur.RestoredBy))
			return alreadyRestored(out, cur), ErrAlreadyRestored
		}
	}

	e.notify(ctx, log, recipient(rec, data), notice, &out)
	return e.finalize(ctx, log, rec, operator, out)
}

// reject records a permanent validation failure.  The error is appended
// to the record but the status is left as it is.
func (e *Engine) reject(ctx context.Context, log *zap.Logger, rec model.FailedPayment, operator string, out Outcome, cause error) (Outcome, error) {
	log.Warn("restore rejected", zap.Error(cause))
	out.Message = restoreFailedMessage(cause)

	cctx, cancel := e.call(ctx)
	_, err := e.d.Payments.Update(cctx, rec.ID, []model.RestoreStatus{rec.Status}, repository.FailedPaymentPatch{AppendError: cause.Error()})
	cancel()
	if err != nil {
		if cur, ok := e.refetch(ctx, log, rec.ID); ok && cur.Status == model.StatusRestored {
			return alreadyRestored(out, cur), ErrAlreadyRestored
		}
		log.Error("append rejection to record", zap.Error(err))
		out.warn("could not record error on payment: " + err.Error())
	}
	e.audit(ctx, log, rec.ID, operator, model.AuditOutcomeRejected, cause.Error())
	return out, cause
}

// fail moves the record to FAILED and appends cause.  A record that was
// restored concurrently stays RESTORED and ErrAlreadyRestored is returned.
func (e *Engine) fail(ctx context.Context, log *zap.Logger, rec model.FailedPayment, operator string, out Outcome, cause error) (Outcome, error) {
	out.Message = restoreFailedMessage(cause)
	if cur, err := e.markFailed(ctx, rec.ID, cause); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			if cur, ok := e.refetch(ctx, log, rec.ID); ok && cur.Status == model.StatusRestored {
				return alreadyRestored(out, cur), ErrAlreadyRestored
			}
		}
		log.Error("mark record failed", zap.Error(err))
		out.warn("could not mark payment as failed: " + err.Error())
	} else {
		out.Status = cur.Status
	}
	e.audit(ctx, log, rec.ID, operator, model.AuditOutcomeFailed, cause.Error())
	return out, cause
}

func (e *Engine) markFailed(ctx context.Context, id string, cause error) (model.FailedPayment, error) {
	failed := model.StatusFailed
	cctx, cancel := e.call(ctx)
	defer cancel()
	return e.d.Payments.Update(cctx, id, model.RestorableStatuses(), repository.FailedPaymentPatch{
		Status:      &failed,
		AppendError: cause.Error(),
	})
}

// finalize performs the conditional PENDING_RESTORE|FAILED -> RESTORED
// transition.  When the write fails the record is re-read and its stored
// status is trusted over the local view.
func (e *Engine) finalize(ctx context.Context, log *zap.Logger, rec model.FailedPayment, operator string, out Outcome) (Outcome, error) {
	restored := model.StatusRestored
	now := e.opts.Now()
	patch := repository.FailedPaymentPatch{
		Status:          &restored,
		RestoredAt:      &now,
		RestoredBy:      &operator,
		RestoredOrderID: &out.RestoredOrderID,
	}
	cctx, cancel := e.call(ctx)
	updated, err := e.d.Payments.Update(cctx, rec.ID, model.RestorableStatuses(), patch)
	cancel()
	if err == nil {
		return e.succeeded(ctx, log, operator, out, updated)
	}

	cur, ok := e.refetch(ctx, log, rec.ID)
	switch {
	case !ok:
		perr := &PersistenceError{Op: "mark restored", Err: err}
		out.Message = restoreFailedMessage(perr)
		out.warn("record status could not be confirmed; domain objects were created and a retry will reuse them")
		return out, perr
	case cur.Status == model.StatusRestored:
		if !errors.Is(err, repository.ErrStatusChanged) && cur.RestoredOrderID == out.RestoredOrderID && cur.RestoredBy == operator {
			// our write landed but its acknowledgement was lost
			return e.succeeded(ctx, log, operator, out, cur)
		}
		log.Info("record restored concurrently", zap.String("restored_by", cur.RestoredBy))
		return alreadyRestored(out, cur), ErrAlreadyRestored
	default:
		return e.fail(ctx, log, rec, operator, out, &PersistenceError{Op: "mark restored", Err: err})
	}
}

func (e *Engine) succeeded(ctx context.Context, log *zap.Logger, operator string, out Outcome, rec model.FailedPayment) (Outcome, error) {
	out.Status = rec.Status
	out.RestoredOrderID = rec.RestoredOrderID
	what := "booking"
	if rec.Purpose == model.PurposeBuyBooks {
		what = "order"
	}
	out.Message = fmt.Sprintf("Restored successfully, %s #%s created", what, rec.RestoredOrderID)
	log.Info("payment restored", zap.String("restored_order_id", rec.RestoredOrderID),
		zap.Int("created", len(out.CreatedIDs)), zap.Int("warnings", len(out.Warnings)))
	e.audit(ctx, log, rec.ID, operator, model.AuditOutcomeRestored, out.Message)
	return out, nil
}

func (e *Engine) refetch(ctx context.Context, log *zap.Logger, id string) (model.FailedPayment, bool) {
	cctx, cancel := e.call(ctx)
	defer cancel()
	cur, err := e.d.Payments.Get(cctx, id)
	if err != nil {
		log.Error("re-read record", zap.Error(err))
		return model.FailedPayment{}, false
	}
	return cur, true
}

func (e *Engine) audit(ctx context.Context, log *zap.Logger, recordID, operator, outcome, detail string) {
	if e.d.Audit == nil {
		return
	}
	cctx, cancel := e.call(ctx)
	defer cancel()
	err := e.d.Audit.Record(cctx, model.AuditLog{
		Action:     model.AuditActionRestore,
		EntityType: "failed_payment",
		EntityID:   recordID,
		Actor:      operator,
		Outcome:    outcome,
		Detail:     detail,
		CreatedAt:  e.opts.Now(),
	})
	if err != nil {
		log.Warn("write audit log", zap.Error(err))
	}
}

func alreadyRestored(out Outcome, cur model.FailedPayment) Outcome {
	out.Status = cur.Status
	out.RestoredOrderID = cur.RestoredOrderID
	out.Message = "Payment already restored"
	return out
}

func restoreFailedMessage(err error) string {
	return "Restoration failed: " + err.Error()
}
