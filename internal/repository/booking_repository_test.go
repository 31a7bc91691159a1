package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatv/payment-recovery/internal/database/sqlitetest"
	"github.com/madhatv/payment-recovery/internal/model"
)

func bookingDrafts(paymentID string, n int) []model.Booking {
	out := make([]model.Booking, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Booking{
			IdempotencyKey: fmt.Sprintf("%s:booking:%d", paymentID, i),
			PaymentID:      paymentID,
			UserName:       "Mary",
			ServiceType:    "mass",
			Intention:      "thanksgiving",
			Amount:         decimal.RequireFromString("118"),
			BaseAmount:     decimal.RequireFromString("100"),
			TaxAmount:      decimal.RequireFromString("18"),
			CGST:           decimal.RequireFromString("9"),
			SGST:           decimal.RequireFromString("9"),
			Currency:       "INR",
			PaymentStatus:  model.PaymentStatusCompleted,
			Status:         model.BookingStatusConfirmed,
		})
	}
	return out
}

func TestBookingRepo_BulkCreateIsIdempotent(t *testing.T) {
	repo := NewBookingRepo(sqlitetest.Open(t))
	ctx := context.Background()

	first, err := repo.BulkCreate(ctx, bookingDrafts("pay_1", 2))
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, b := range first {
		assert.NotEmpty(t, b.ID)
		assert.False(t, b.Existing)
	}

	second, err := repo.BulkCreate(ctx, bookingDrafts("pay_1", 3))
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.True(t, second[0].Existing)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[1].Existing)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.False(t, second[2].Existing)

	stored, err := repo.ListByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.True(t, decimal.RequireFromString("9").Equal(stored[0].CGST))
	assert.Empty(t, stored[0].OrderID)
}

func TestBookingRepo_BulkCreateConcurrent(t *testing.T) {
	repo := NewBookingRepo(sqlitetest.Open(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.BulkCreate(ctx, bookingDrafts("pay_c", 2))
		}()
	}
	wg.Wait()

	stored, err := repo.ListByPaymentID(ctx, "pay_c")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestBookingRepo_BulkCreateEmpty(t *testing.T) {
	repo := NewBookingRepo(sqlitetest.Open(t))
	out, err := repo.BulkCreate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// staleBookingLookup hides stored rows from the first n lookups, the way a
// snapshot read misses a row committed by a concurrent transaction.
func staleBookingLookup(r *BookingRepo, n int) *int {
	calls := 0
	next := r.lookup
	r.lookup = func(ctx context.Context, tx *sql.Tx, keys []string) (map[string]model.Booking, error) {
		calls++
		if calls <= n {
			return map[string]model.Booking{}, nil
		}
		return next(ctx, tx, keys)
	}
	return &calls
}

func TestBookingRepo_BulkCreateLosesInsertRace(t *testing.T) {
	repo := NewBookingRepo(sqlitetest.Open(t))
	ctx := context.Background()
	drafts := bookingDrafts("pay_race", 2)

	first, err := repo.BulkCreate(ctx, drafts)
	require.NoError(t, err)

	calls := staleBookingLookup(repo, 1)
	second, err := repo.BulkCreate(ctx, drafts)
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
	require.Len(t, second, 2)
	for i := range second {
		assert.True(t, second[i].Existing)
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	stored, err := repo.ListByPaymentID(ctx, "pay_race")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestBookingRepo_BulkCreateRetriesOnce(t *testing.T) {
	repo := NewBookingRepo(sqlitetest.Open(t))
	ctx := context.Background()
	drafts := bookingDrafts("pay_race", 1)
	_, err := repo.BulkCreate(ctx, drafts)
	require.NoError(t, err)

	calls := staleBookingLookup(repo, 5)
	_, err = repo.BulkCreate(ctx, drafts)
	assert.True(t, isDuplicateKey(err))
	assert.Equal(t, 2, *calls)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, isDuplicateKey(nil))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.True(t, isDuplicateKey(fmt.Errorf("UNIQUE constraint failed: orders.idempotency_key")))
	assert.False(t, isDuplicateKey(fmt.Errorf("database is locked")))
}
