package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusCompleted = "completed"
	BookingStatusConfirmed = "confirmed"
	OrderStatusPending     = "pending"
)

// Booking is a confirmed service booking (mass intention, prayer request
// and similar) rebuilt from a payment snapshot.
//
// Fields:
//
//	ID             – bookings.id (UUID).
//	OrderID        – optional grouping id shared by bookings paid together.
//	IdempotencyKey – <payment_id>:booking:<index>, unique.
//	Existing       – true when the row was already stored by an earlier
//	                 restore attempt; never persisted.
type Booking struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id,omitempty"`
	IdempotencyKey  string          `json:"idempotency_key"`
	PaymentID       string          `json:"payment_id"`
	UserID          string          `json:"user_id"`
	UserName        string          `json:"user_name"`
	Email           string          `json:"email"`
	Mobile          string          `json:"mobile"`
	ServiceType     string          `json:"service_type"`
	BookingDate     string          `json:"booking_date,omitempty"`
	BeneficiaryName string          `json:"beneficiary_name,omitempty"`
	Intention       string          `json:"intention,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	CGST            decimal.Decimal `json:"cgst"`
	SGST            decimal.Decimal `json:"sgst"`
	Currency        string          `json:"currency"`
	PaymentStatus   string          `json:"payment_status"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	Existing        bool            `json:"-"`
}
