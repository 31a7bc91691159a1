package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Purpose names what a payment was originally meant to pay for.  It
// decides which domain objects are rebuilt when the payment is restored.
type Purpose string

const (
	PurposeServiceBooking Purpose = "service_booking"
	PurposeBuyBooks       Purpose = "buy_books"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	return p == PurposeServiceBooking || p == PurposeBuyBooks
}

// RestoreStatus is the lifecycle state of a failed payment record.
type RestoreStatus string

const (
	StatusPendingRestore RestoreStatus = "PENDING_RESTORE"
	StatusRestored       RestoreStatus = "RESTORED"
	StatusFailed         RestoreStatus = "FAILED"
)

// Valid reports whether s is a known status.
func (s RestoreStatus) Valid() bool {
	switch s {
	case StatusPendingRestore, StatusRestored, StatusFailed:
		return true
	}
	return false
}

// Restorable reports whether a record in status s may still be restored.
// FAILED records are retryable; RESTORED is terminal.
func (s RestoreStatus) Restorable() bool {
	return s == StatusPendingRestore || s == StatusFailed
}

// RestorableStatuses lists the statuses a restore may start from.  It is
// used as the predicate of conditional status updates.
func RestorableStatuses() []RestoreStatus {
	return []RestoreStatus{StatusPendingRestore, StatusFailed}
}

// FailedPayment records a payment that succeeded at the gateway but whose
// booking or order was never created.  Records are written by the payment
// webhook and only mutated here through conditional updates.
//
// Fields:
//
//	ID              – primary key (UUID).
//	PaymentID       – gateway transaction id, natural key for idempotency.
//	Purpose         – service_booking or buy_books.
//	Status          – PENDING_RESTORE, RESTORED or FAILED.
//	PaymentData     – raw JSON snapshot captured when creation failed.
//	ErrorMessage    – accumulated failure reasons, one per line.
//	RestoredAt/By   – set only once the record is RESTORED.
//	RestoredOrderID – id of the first rebuilt booking/order.
type FailedPayment struct {
	ID              string          `json:"id"`
	PaymentID       string          `json:"payment_id"`
	Purpose         Purpose         `json:"purpose"`
	Status          RestoreStatus   `json:"status"`
	PaymentData     json.RawMessage `json:"payment_data,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method"`
	UserName        string          `json:"user_name"`
	Email           string          `json:"email"`
	Mobile          string          `json:"mobile"`
	UserID          string          `json:"user_id"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	RestoredAt      *time.Time      `json:"restored_at,omitempty"`
	RestoredBy      string          `json:"restored_by,omitempty"`
	RestoredOrderID string          `json:"restored_order_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
