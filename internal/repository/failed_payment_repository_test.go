package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatv/payment-recovery/internal/database/sqlitetest"
	"github.com/madhatv/payment-recovery/internal/model"
)

func seedFailedPayment(t *testing.T, repo *FailedPaymentRepo, paymentID string, purpose model.Purpose) model.FailedPayment {
	t.Helper()
	fp := model.FailedPayment{
		PaymentID:   paymentID,
		Purpose:     purpose,
		PaymentData: []byte(`{"cart":[{"id":"B1","quantity":2,"price":100,"title":"Bible"}]}`),
		Amount:      decimal.RequireFromString("200"),
		Currency:    "INR",
		UserName:    "Mary",
		Email:       "mary@example.com",
	}
	require.NoError(t, repo.Create(context.Background(), &fp))
	return fp
}

func TestFailedPaymentRepo_CreateAndGet(t *testing.T) {
	repo := NewFailedPaymentRepo(sqlitetest.Open(t))
	ctx := context.Background()

	created := seedFailedPayment(t, repo, "pay_1", model.PurposeBuyBooks)
	assert.NotEmpty(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", got.PaymentID)
	assert.Equal(t, model.StatusPendingRestore, got.Status)
	assert.True(t, decimal.RequireFromString("200").Equal(got.Amount))
	assert.JSONEq(t, `{"cart":[{"id":"B1","quantity":2,"price":100,"title":"Bible"}]}`, string(got.PaymentData))
	assert.Nil(t, got.RestoredAt)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailedPaymentRepo_ListFilters(t *testing.T) {
	repo := NewFailedPaymentRepo(sqlitetest.Open(t))
	ctx := context.Background()

	a := seedFailedPayment(t, repo, "pay_a", model.PurposeBuyBooks)
	seedFailedPayment(t, repo, "pay_b", model.PurposeServiceBooking)
	restored := model.StatusRestored
	_, err := repo.Update(ctx, a.ID, nil, FailedPaymentPatch{Status: &restored})
	require.NoError(t, err)

	all, err := repo.List(ctx, FailedPaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := repo.List(ctx, FailedPaymentFilter{Status: model.StatusPendingRestore})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pay_b", pending[0].PaymentID)

	books, err := repo.List(ctx, FailedPaymentFilter{Purpose: model.PurposeBuyBooks})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "pay_a", books[0].PaymentID)

	page, err := repo.List(ctx, FailedPaymentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestFailedPaymentRepo_UpdateIsConditional(t *testing.T) {
	repo := NewFailedPaymentRepo(sqlitetest.Open(t))
	ctx := context.Background()
	fp := seedFailedPayment(t, repo, "pay_1", model.PurposeBuyBooks)

	restored := model.StatusRestored
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	by := "ops@madha"
	orderID := "ord-1"
	patch := FailedPaymentPatch{Status: &restored, RestoredAt: &at, RestoredBy: &by, RestoredOrderID: &orderID}

	got, err := repo.Update(ctx, fp.ID, model.RestorableStatuses(), patch)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRestored, got.Status)
	require.NotNil(t, got.RestoredAt)
	assert.True(t, at.Equal(*got.RestoredAt))
	assert.Equal(t, by, got.RestoredBy)
	assert.Equal(t, orderID, got.RestoredOrderID)

	// a second transition from a restorable status must not match
	_, err = repo.Update(ctx, fp.ID, model.RestorableStatuses(), patch)
	assert.ErrorIs(t, err, ErrStatusChanged)

	_, err = repo.Update(ctx, "missing", model.RestorableStatuses(), patch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailedPaymentRepo_UpdateAppendsErrors(t *testing.T) {
	repo := NewFailedPaymentRepo(sqlitetest.Open(t))
	ctx := context.Background()
	fp := seedFailedPayment(t, repo, "pay_1", model.PurposeBuyBooks)

	failed := model.StatusFailed
	_, err := repo.Update(ctx, fp.ID, model.RestorableStatuses(), FailedPaymentPatch{Status: &failed, AppendError: "db down"})
	require.NoError(t, err)
	got, err := repo.Update(ctx, fp.ID, model.RestorableStatuses(), FailedPaymentPatch{Status: &failed, AppendError: "timeout"})
	require.NoError(t, err)

	lines := strings.Split(got.ErrorMessage, ErrorEntrySeparator)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "] db down"))
	assert.True(t, strings.HasSuffix(lines[1], "] timeout"))
	assert.True(t, strings.HasPrefix(lines[0], "["))
}

func TestFailedPaymentRepo_ListRestored(t *testing.T) {
	repo := NewFailedPaymentRepo(sqlitetest.Open(t))
	ctx := context.Background()
	first := seedFailedPayment(t, repo, "pay_1", model.PurposeBuyBooks)
	second := seedFailedPayment(t, repo, "pay_2", model.PurposeServiceBooking)
	seedFailedPayment(t, repo, "pay_3", model.PurposeServiceBooking)

	restored := model.StatusRestored
	early := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	_, err := repo.Update(ctx, first.ID, nil, FailedPaymentPatch{Status: &restored, RestoredAt: &early})
	require.NoError(t, err)
	_, err = repo.Update(ctx, second.ID, nil, FailedPaymentPatch{Status: &restored, RestoredAt: &late})
	require.NoError(t, err)

	history, err := repo.ListRestored(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "pay_2", history[0].PaymentID)
	assert.Equal(t, "pay_1", history[1].PaymentID)
}

func TestFormatErrorEntry(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "[2026-03-01T04:30:00Z] boom", FormatErrorEntry(at, "  boom \n"))
}
