package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/madhatv/payment-recovery/internal/model"
)

// BookRepo provides access to the books inventory.  Stock changes are
// guarded by the version column: an update only applies when the caller
// saw the latest version, otherwise ErrConflict is returned.
type BookRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewBookRepo returns a BookRepo bound to db.
func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a book row.  Version starts at zero.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	b.UpdatedAt = r.now()
	b.Version = 0
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, price, stock_quantity, version, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Price, b.StockQuantity, b.Version, b.UpdatedAt)
	return err
}

// Get returns the book with the given id or ErrNotFound.
func (r *BookRepo) Get(ctx context.Context, id string) (model.Book, error) {
	var b model.Book
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, price, stock_quantity, version, updated_at FROM books WHERE id = ?`, id,
	).Scan(&b.ID, &b.Title, &b.Price, &b.StockQuantity, &b.Version, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, ErrNotFound
	}
	return b, err
}

// UpdateStock sets stock_quantity to stock if the row is still at
// expectedVersion and returns the updated book.  Negative values are
// stored as zero.
func (r *BookRepo) UpdateStock(ctx context.Context, id string, stock int, expectedVersion uint32) (model.Book, error) {
	if stock < 0 {
		stock = 0
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET stock_quantity = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		stock, r.now(), id, expectedVersion)
	if err != nil {
		return model.Book{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Book{}, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return model.Book{}, err
		}
		return model.Book{}, ErrConflict
	}
	return r.Get(ctx, id)
}
