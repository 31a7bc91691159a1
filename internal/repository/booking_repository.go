package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/madhatv/payment-recovery/internal/model"
)

// BookingRepo persists service bookings.  Every booking carries a unique
// idempotency key so that a restore which failed half way can be re-run
// without creating the same booking twice.
type BookingRepo struct {
	db     *sql.DB
	now    func() time.Time
	lookup func(ctx context.Context, tx *sql.Tx, keys []string) (map[string]model.Booking, error)
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	r := &BookingRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
	r.lookup = r.byKeysTx
	return r
}

const bookingColumns = `id, order_id, idempotency_key, payment_id, user_id, user_name, email, mobile,
	service_type, booking_date, beneficiary_name, intention, amount, base_amount, tax_amount, cgst, sgst,
	currency, payment_status, status, created_at`

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b       model.Booking
		orderID sql.NullString
	)
	err := s.Scan(
		&b.ID, &orderID, &b.IdempotencyKey, &b.PaymentID, &b.UserID, &b.UserName, &b.Email, &b.Mobile,
		&b.ServiceType, &b.BookingDate, &b.BeneficiaryName, &b.Intention, &b.Amount, &b.BaseAmount,
		&b.TaxAmount, &b.CGST, &b.SGST, &b.Currency, &b.PaymentStatus, &b.Status, &b.CreatedAt,
	)
	b.OrderID = orderID.String
	return b, err
}

// BulkCreate stores bookings in a single transaction and returns them in
// input order.  Bookings whose idempotency key already exists are not
// inserted again; the stored row is returned instead with Existing set.
// Either every missing booking is inserted or none is.
func (r *BookingRepo) BulkCreate(ctx context.Context, bookings []model.Booking) ([]model.Booking, error) {
	if len(bookings) == 0 {
		return []model.Booking{}, nil
	}
	out, err := r.bulkCreate(ctx, bookings)
	if isDuplicateKey(err) {
		// The key lookup is a plain snapshot read, so a concurrent writer
		// can commit the same keys between it and the insert.  A new
		// transaction sees those rows and returns them as existing.
		out, err = r.bulkCreate(ctx, bookings)
	}
	return out, err
}

func (r *BookingRepo) bulkCreate(ctx context.Context, bookings []model.Booking) ([]model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	keys := make([]string, 0, len(bookings))
	for _, b := range bookings {
		keys = append(keys, b.IdempotencyKey)
	}
	existing, err := r.lookup(ctx, tx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]model.Booking, 0, len(bookings))
	toInsert := make([]model.Booking, 0, len(bookings))
	now := r.now()
	for _, b := range bookings {
		if found, ok := existing[b.IdempotencyKey]; ok {
			found.Existing = true
			out = append(out, found)
			continue
		}
		b.ID = uuid.NewString()
		b.CreatedAt = now
		b.Existing = false
		toInsert = append(toInsert, b)
		out = append(out, b)
	}

	if len(toInsert) > 0 {
		query := `INSERT INTO bookings (id, order_id, idempotency_key, payment_id, user_id, user_name, email, mobile,
			service_type, booking_date, beneficiary_name, intention, amount, base_amount, tax_amount, cgst, sgst,
			currency, payment_status, status, created_at) VALUES `
		args := make([]any, 0, len(toInsert)*21)
		for i, b := range toInsert {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, b.ID, nullIfEmpty(b.OrderID), b.IdempotencyKey, b.PaymentID, b.UserID, b.UserName,
				b.Email, b.Mobile, b.ServiceType, b.BookingDate, b.BeneficiaryName, b.Intention, b.Amount,
				b.BaseAmount, b.TaxAmount, b.CGST, b.SGST, b.Currency, b.PaymentStatus, b.Status, b.CreatedAt)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

func (r *BookingRepo) byKeysTx(ctx context.Context, tx *sql.Tx, keys []string) (map[string]model.Booking, error) {
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[string]model.Booking, len(keys))
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		found[b.IdempotencyKey] = b
	}
	return found, rows.Err()
}

// ListByPaymentID returns all bookings created for a gateway payment.
func (r *BookingRepo) ListByPaymentID(ctx context.Context, paymentID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_id = ? ORDER BY idempotency_key`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isDuplicateKey reports whether err is a unique constraint violation.
// MySQL reports error 1062; SQLite (used in tests) reports a
// "UNIQUE constraint failed" message.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
