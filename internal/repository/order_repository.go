package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/madhatv/payment-recovery/internal/model"
)

// OrderRepo persists book orders.  Orders are keyed by an idempotency
// key derived from the gateway payment id.
type OrderRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const orderColumns = `id, idempotency_key, payment_id, user_id, customer_name, email, mobile, shipping_address,
	total_amount, currency, payment_method, payment_status, order_status, created_at`

func scanOrder(s rowScanner) (model.Order, error) {
	var o model.Order
	err := s.Scan(&o.ID, &o.IdempotencyKey, &o.PaymentID, &o.UserID, &o.CustomerName, &o.Email, &o.Mobile,
		&o.ShippingAddress, &o.TotalAmount, &o.Currency, &o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus,
		&o.CreatedAt)
	return o, err
}

// Create inserts the order unless one with the same idempotency key
// already exists, in which case the stored order is returned with
// Existing set.  A concurrent insert of the same key is resolved the
// same way.
func (r *OrderRepo) Create(ctx context.Context, o model.Order) (model.Order, error) {
	if found, err := r.GetByKey(ctx, o.IdempotencyKey); err == nil {
		found.Existing = true
		return found, nil
	} else if !errors.Is(err, ErrNotFound) {
		return model.Order{}, err
	}

	o.ID = uuid.NewString()
	o.CreatedAt = r.now()
	o.Existing = false
	const q = `INSERT INTO orders (id, idempotency_key, payment_id, user_id, customer_name, email, mobile,
		shipping_address, total_amount, currency, payment_method, payment_status, order_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, o.ID, o.IdempotencyKey, o.PaymentID, o.UserID, o.CustomerName, o.Email,
		o.Mobile, o.ShippingAddress, o.TotalAmount, o.Currency, o.PaymentMethod, o.PaymentStatus, o.OrderStatus,
		o.CreatedAt)
	if isDuplicateKey(err) {
		found, getErr := r.GetByKey(ctx, o.IdempotencyKey)
		if getErr != nil {
			return model.Order{}, getErr
		}
		found.Existing = true
		return found, nil
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// GetByKey returns the order with the given idempotency key or ErrNotFound.
func (r *OrderRepo) GetByKey(ctx context.Context, key string) (model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = ?`, key)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

// OrderItemRepo persists order line items.
type OrderItemRepo struct {
	db     *sql.DB
	now    func() time.Time
	lookup func(ctx context.Context, tx *sql.Tx, keys []string) (map[string]model.OrderItem, error)
}

// NewOrderItemRepo returns an OrderItemRepo bound to db.
func NewOrderItemRepo(db *sql.DB) *OrderItemRepo {
	r := &OrderItemRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
	r.lookup = r.byKeysTx
	return r
}

const orderItemColumns = `id, order_id, idempotency_key, book_id, title, quantity, price, created_at`

// BulkCreate inserts the items in one transaction and returns them in
// input order.  Items whose idempotency key is already stored are
// returned with Existing set and are not inserted again.  An insert that
// loses a race on the same keys is retried once and then finds them.
func (r *OrderItemRepo) BulkCreate(ctx context.Context, items []model.OrderItem) ([]model.OrderItem, error) {
	if len(items) == 0 {
		return []model.OrderItem{}, nil
	}
	out, err := r.bulkCreate(ctx, items)
	if isDuplicateKey(err) {
		out, err = r.bulkCreate(ctx, items)
	}
	return out, err
}

func (r *OrderItemRepo) bulkCreate(ctx context.Context, items []model.OrderItem) ([]model.OrderItem, error) {
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

	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.IdempotencyKey)
	}
	existing, err := r.lookup(ctx, tx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]model.OrderItem, 0, len(items))
	query := `INSERT INTO order_items (id, order_id, idempotency_key, book_id, title, quantity, price, created_at) VALUES `
	insertArgs := make([]any, 0, len(items)*8)
	inserted := 0
	now := r.now()
	for _, it := range items {
		if found, ok := existing[it.IdempotencyKey]; ok {
			found.Existing = true
			out = append(out, found)
			continue
		}
		it.ID = uuid.NewString()
		it.CreatedAt = now
		it.Existing = false
		if inserted > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		insertArgs = append(insertArgs, it.ID, it.OrderID, it.IdempotencyKey, it.BookID, it.Title, it.Quantity,
			it.Price, it.CreatedAt)
		inserted++
		out = append(out, it)
	}
	if inserted > 0 {
		if _, err := tx.ExecContext(ctx, query, insertArgs...); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

func (r *OrderItemRepo) byKeysTx(ctx context.Context, tx *sql.Tx, keys []string) (map[string]model.OrderItem, error) {
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE idempotency_key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[string]model.OrderItem, len(keys))
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.IdempotencyKey, &it.BookID, &it.Title, &it.Quantity,
			&it.Price, &it.CreatedAt); err != nil {
			return nil, err
		}
		found[it.IdempotencyKey] = it
	}
	return found, rows.Err()
}

// ListByOrder returns the items of an order.
func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY idempotency_key`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.OrderItem, 0)
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.IdempotencyKey, &it.BookID, &it.Title, &it.Quantity,
			&it.Price, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
