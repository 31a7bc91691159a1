package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyPaymentData is returned when the snapshot is absent or holds
	// nothing to rebuild for the record's purpose.
	ErrEmptyPaymentData = errors.New("payment data is empty")
	// ErrUnknownPurpose is returned for a purpose outside the known set.
	ErrUnknownPurpose = errors.New("unknown purpose")
)

// BookingDraft is one service booking as captured in the payment snapshot.
// Customer fields are optional and fall back to the record's own fields.
type BookingDraft struct {
	OrderID         string          `json:"order_id,omitempty"`
	ServiceType     string          `json:"service_type"`
	BookingDate     string          `json:"booking_date,omitempty"`
	BeneficiaryName string          `json:"beneficiary_name,omitempty"`
	Intention       string          `json:"intention,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	CGST            decimal.Decimal `json:"cgst"`
	SGST            decimal.Decimal `json:"sgst"`
	Currency        string          `json:"currency,omitempty"`
	UserID          string          `json:"user_id,omitempty"`
	UserName        string          `json:"user_name,omitempty"`
	Email           string          `json:"email,omitempty"`
	Mobile          string          `json:"mobile,omitempty"`
}

// CartItem is one line of a book cart.
type CartItem struct {
	ID       string          `json:"id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Title    string          `json:"title"`
}

// UserInfo carries the buyer details captured at checkout.
type UserInfo struct {
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
	Address string `json:"address,omitempty"`
}

// ServiceBookingData is the snapshot shape for PurposeServiceBooking.
type ServiceBookingData struct {
	Bookings []BookingDraft `json:"bookings"`
	UserInfo *UserInfo      `json:"user_info,omitempty"`
}

// BuyBooksData is the snapshot shape for PurposeBuyBooks.
type BuyBooksData struct {
	Cart            []CartItem `json:"cart"`
	UserInfo        *UserInfo  `json:"user_info,omitempty"`
	ShippingAddress string     `json:"shipping_address,omitempty"`
}

// PaymentData is the decoded snapshot.  Exactly one of Bookings or Books
// is set, matching Purpose.
type PaymentData struct {
	Purpose  Purpose
	Bookings *ServiceBookingData
	Books    *BuyBooksData
}

// DecodePaymentData validates raw against purpose and decodes it.  The
// webhook occasionally stores the snapshot as a JSON string holding JSON,
// so one level of string encoding is unwrapped first.
func DecodePaymentData(purpose Purpose, raw json.RawMessage) (PaymentData, error) {
	if !purpose.Valid() {
		return PaymentData{}, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return PaymentData{}, fmt.Errorf("%w: %v", ErrEmptyPaymentData, err)
		}
		raw = json.RawMessage(strings.TrimSpace(inner))
	}
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return PaymentData{}, ErrEmptyPaymentData
	}

	switch purpose {
	case PurposeServiceBooking:
		var d ServiceBookingData
		if err := json.Unmarshal(raw, &d); err != nil {
			return PaymentData{}, fmt.Errorf("%w: decode bookings: %v", ErrEmptyPaymentData, err)
		}
		if len(d.Bookings) == 0 {
			return PaymentData{}, fmt.Errorf("%w: no bookings", ErrEmptyPaymentData)
		}
		return PaymentData{Purpose: purpose, Bookings: &d}, nil
	default:
		var d BuyBooksData
		if err := json.Unmarshal(raw, &d); err != nil {
			return PaymentData{}, fmt.Errorf("%w: decode cart: %v", ErrEmptyPaymentData, err)
		}
		if len(d.Cart) == 0 {
			return PaymentData{}, fmt.Errorf("%w: empty cart", ErrEmptyPaymentData)
		}
		for i, it := range d.Cart {
			if strings.TrimSpace(it.ID) == "" {
				return PaymentData{}, fmt.Errorf("%w: cart[%d] has no book id", ErrEmptyPaymentData, i)
			}
			if it.Quantity <= 0 {
				return PaymentData{}, fmt.Errorf("%w: cart[%d] has quantity %d", ErrEmptyPaymentData, i, it.Quantity)
			}
		}
		return PaymentData{Purpose: purpose, Books: &d}, nil
	}
}
