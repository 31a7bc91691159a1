package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/madhatv/payment-recovery/internal/config"
	"github.com/madhatv/payment-recovery/internal/database/sqlitetest"
	"github.com/madhatv/payment-recovery/internal/model"
)

func TestNewEngineWithoutRedisOrBroker(t *testing.T) {
	db := sqlitetest.Open(t)
	s := NewStores(db)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, &model.Book{ID: "bk-1", Title: "Psalms", Price: decimal.RequireFromString("50"), StockQuantity: 4}))
	rec := model.FailedPayment{
		PaymentID:   "pay_app",
		Purpose:     model.PurposeBuyBooks,
		PaymentData: []byte(`{"cart":[{"id":"bk-1","quantity":3,"price":"50","title":"Psalms"}]}`),
		Amount:      decimal.RequireFromString("150"),
		Currency:    "INR",
		Email:       "mary@example.com",
	}
	require.NoError(t, s.Payments.Create(ctx, &rec))

	engine := NewEngine(s, nil, config.AMQPConfig{Enabled: false, URL: "amqp://unused"}, config.ReconcileConfig{}, zaptest.NewLogger(t))
	out, err := engine.Restore(ctx, rec.ID, "ops")
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	require.Len(t, out.StockAdjustments, 1)
	assert.Equal(t, 1, out.StockAdjustments[0].After)

	book, err := s.Books.Get(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, 1, book.StockQuantity)
}
