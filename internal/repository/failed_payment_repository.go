package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madhatv/payment-recovery/internal/model"
)

// FailedPaymentFilter narrows List results.  Zero values mean "any".
type FailedPaymentFilter struct {
	Status  model.RestoreStatus
	Purpose model.Purpose
	Limit   int
	Offset  int
}

// FailedPaymentPatch describes a partial update.  Nil pointers leave the
// column untouched.  AppendError is added to error_message as a new
// timestamped line; the existing text is never overwritten.
type FailedPaymentPatch struct {
	Status          *model.RestoreStatus
	AppendError     string
	RestoredAt      *time.Time
	RestoredBy      *string
	RestoredOrderID *string
}

// FailedPaymentRepo provides access to the failed_payments table.  All
// status changes go through Update, which is conditional on the current
// status so that two operators cannot both transition the same record.
type FailedPaymentRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewFailedPaymentRepo returns a FailedPaymentRepo bound to db.
func NewFailedPaymentRepo(db *sql.DB) *FailedPaymentRepo {
	return &FailedPaymentRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const failedPaymentColumns = `id, payment_id, purpose, status, payment_data, amount, currency, payment_method,
	user_name, email, mobile, user_id, error_message, restored_at, restored_by, restored_order_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFailedPayment(s rowScanner) (model.FailedPayment, error) {
	var (
		fp          model.FailedPayment
		data        []byte
		errMsg      sql.NullString
		restoredAt  sql.NullTime
		restoredBy  sql.NullString
		restoredOID sql.NullString
	)
	err := s.Scan(
		&fp.ID, &fp.PaymentID, &fp.Purpose, &fp.Status, &data, &fp.Amount, &fp.Currency, &fp.PaymentMethod,
		&fp.UserName, &fp.Email, &fp.Mobile, &fp.UserID, &errMsg, &restoredAt, &restoredBy, &restoredOID,
		&fp.CreatedAt, &fp.UpdatedAt,
	)
	if err != nil {
		return model.FailedPayment{}, err
	}
	if len(data) > 0 {
		fp.PaymentData = append([]byte(nil), data...)
	}
	fp.ErrorMessage = errMsg.String
	if restoredAt.Valid {
		t := restoredAt.Time.UTC()
		fp.RestoredAt = &t
	}
	fp.RestoredBy = restoredBy.String
	fp.RestoredOrderID = restoredOID.String
	return fp, nil
}

// Create inserts a new record.  An empty ID is replaced with a fresh UUID
// and an empty status defaults to PENDING_RESTORE.
func (r *FailedPaymentRepo) Create(ctx context.Context, fp *model.FailedPayment) error {
	if fp.ID == "" {
		fp.ID = uuid.NewString()
	}
	if fp.Status == "" {
		fp.Status = model.StatusPendingRestore
	}
	now := r.now()
	fp.CreatedAt, fp.UpdatedAt = now, now
	var data any
	if len(fp.PaymentData) > 0 {
		data = string(fp.PaymentData)
	}
	const q = `INSERT INTO failed_payments (id, payment_id, purpose, status, payment_data, amount, currency,
		payment_method, user_name, email, mobile, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		fp.ID, fp.PaymentID, fp.Purpose, fp.Status, data, fp.Amount, fp.Currency,
		fp.PaymentMethod, fp.UserName, fp.Email, fp.Mobile, fp.UserID, now, now,
	)
	return err
}

// Get returns the record with the given id or ErrNotFound.
func (r *FailedPaymentRepo) Get(ctx context.Context, id string) (model.FailedPayment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+failedPaymentColumns+` FROM failed_payments WHERE id = ?`, id)
	fp, err := scanFailedPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FailedPayment{}, ErrNotFound
	}
	return fp, err
}

// List returns records matching f, newest first.  A zero Limit defaults
// to 100.
func (r *FailedPaymentRepo) List(ctx context.Context, f FailedPaymentFilter) ([]model.FailedPayment, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Purpose != "" {
		where = append(where, "purpose = ?")
		args = append(args, f.Purpose)
	}
	q := `SELECT ` + failedPaymentColumns + ` FROM failed_payments`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limitOrDefault(f.Limit), max(f.Offset, 0))
	return r.query(ctx, q, args...)
}

// ListRestored returns RESTORED records ordered by restore time, newest
// first.  It backs the recovery history screen and export.
func (r *FailedPaymentRepo) ListRestored(ctx context.Context, limit, offset int) ([]model.FailedPayment, error) {
	q := `SELECT ` + failedPaymentColumns + ` FROM failed_payments
		WHERE status = ? ORDER BY restored_at DESC, id LIMIT ? OFFSET ?`
	return r.query(ctx, q, model.StatusRestored, limitOrDefault(limit), max(offset, 0))
}

func (r *FailedPaymentRepo) query(ctx context.Context, q string, args ...any) ([]model.FailedPayment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.FailedPayment, 0)
	for rows.Next() {
		fp, err := scanFailedPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies patch to the record if its current status is one of
// expected (any status when expected is empty) and returns the updated
// row.  When no row matches it returns ErrNotFound if the record does not
// exist and ErrStatusChanged otherwise.
func (r *FailedPaymentRepo) Update(ctx context.Context, id string, expected []model.RestoreStatus, p FailedPaymentPatch) (model.FailedPayment, error) {
	sets := []string{"updated_at = ?"}
	args := []any{r.now()}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *p.Status)
	}
	if p.AppendError != "" {
		entry := FormatErrorEntry(r.now(), p.AppendError)
		sets = append(sets, "error_message = CASE WHEN error_message IS NULL OR error_message = '' THEN ? ELSE CONCAT(error_message, ?, ?) END")
		args = append(args, entry, ErrorEntrySeparator, entry)
	}
	if p.RestoredAt != nil {
		sets = append(sets, "restored_at = ?")
		args = append(args, p.RestoredAt.UTC())
	}
	if p.RestoredBy != nil {
		sets = append(sets, "restored_by = ?")
		args = append(args, *p.RestoredBy)
	}
	if p.RestoredOrderID != nil {
		sets = append(sets, "restored_order_id = ?")
		args = append(args, *p.RestoredOrderID)
	}

	q := "UPDATE failed_payments SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	if len(expected) > 0 {
		q += " AND status IN (" + placeholders(len(expected)) + ")"
		for _, s := range expected {
			args = append(args, s)
		}
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return model.FailedPayment{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.FailedPayment{}, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return model.FailedPayment{}, err
		}
		return model.FailedPayment{}, ErrStatusChanged
	}
	return r.Get(ctx, id)
}

// ErrorEntrySeparator separates accumulated error_message entries.
const ErrorEntrySeparator = "\n"

// FormatErrorEntry prefixes msg with an RFC3339 timestamp.
func FormatErrorEntry(at time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s", at.UTC().Format(time.RFC3339), strings.TrimSpace(msg))
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

