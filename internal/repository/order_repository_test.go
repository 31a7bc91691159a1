package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatv/payment-recovery/internal/database/sqlitetest"
	"github.com/madhatv/payment-recovery/internal/model"
)

func TestOrderRepo_CreateIsIdempotent(t *testing.T) {
	db := sqlitetest.Open(t)
	orders := NewOrderRepo(db)
	ctx := context.Background()

	draft := model.Order{
		IdempotencyKey:  "pay_1:order",
		PaymentID:       "pay_1",
		CustomerName:    "Mary",
		ShippingAddress: "N/A",
		TotalAmount:     decimal.RequireFromString("200"),
		Currency:        "INR",
		PaymentStatus:   model.PaymentStatusCompleted,
		OrderStatus:     model.OrderStatusPending,
	}
	first, err := orders.Create(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Existing)

	second, err := orders.Create(ctx, draft)
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, decimal.RequireFromString("200").Equal(second.TotalAmount))

	_, err = orders.GetByKey(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderItemRepo_BulkCreateIsIdempotent(t *testing.T) {
	db := sqlitetest.Open(t)
	ctx := context.Background()
	order, err := NewOrderRepo(db).Create(ctx, model.Order{
		IdempotencyKey: "pay_1:order", PaymentID: "pay_1",
		PaymentStatus: model.PaymentStatusCompleted, OrderStatus: model.OrderStatusPending,
	})
	require.NoError(t, err)

	items := NewOrderItemRepo(db)
	draft := []model.OrderItem{
		{OrderID: order.ID, IdempotencyKey: "pay_1:item:0", BookID: "B1", Title: "Bible", Quantity: 2, Price: decimal.RequireFromString("100")},
		{OrderID: order.ID, IdempotencyKey: "pay_1:item:1", BookID: "B2", Title: "Psalms", Quantity: 1, Price: decimal.RequireFromString("50")},
	}
	first, err := items.BulkCreate(ctx, draft[:1])
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.False(t, first[0].Existing)

	second, err := items.BulkCreate(ctx, draft)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.True(t, second[0].Existing)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.False(t, second[1].Existing)

	stored, err := items.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "B1", stored[0].BookID)
	assert.Equal(t, 2, stored[0].Quantity)
}

func TestOrderItemRepo_BulkCreateLosesInsertRace(t *testing.T) {
	db := sqlitetest.Open(t)
	ctx := context.Background()
	order, err := NewOrderRepo(db).Create(ctx, model.Order{
		IdempotencyKey: "pay_1:order", PaymentID: "pay_1",
		PaymentStatus: model.PaymentStatusCompleted, OrderStatus: model.OrderStatusPending,
	})
	require.NoError(t, err)

	items := NewOrderItemRepo(db)
	draft := []model.OrderItem{
		{OrderID: order.ID, IdempotencyKey: "pay_1:item:0", BookID: "B1", Title: "Bible", Quantity: 2, Price: decimal.RequireFromString("100")},
	}
	first, err := items.BulkCreate(ctx, draft)
	require.NoError(t, err)

	stale := true
	next := items.lookup
	items.lookup = func(ctx context.Context, tx *sql.Tx, keys []string) (map[string]model.OrderItem, error) {
		if stale {
			stale = false
			return map[string]model.OrderItem{}, nil
		}
		return next(ctx, tx, keys)
	}

	second, err := items.BulkCreate(ctx, draft)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].Existing)
	assert.Equal(t, first[0].ID, second[0].ID)
}
