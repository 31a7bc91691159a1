package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a book order rebuilt from a cart snapshot.
type Order struct {
	ID              string          `json:"id"`
	IdempotencyKey  string          `json:"idempotency_key"` // <payment_id>:order
	PaymentID       string          `json:"payment_id"`
	UserID          string          `json:"user_id"`
	CustomerName    string          `json:"customer_name"`
	Email           string          `json:"email"`
	Mobile          string          `json:"mobile"`
	ShippingAddress string          `json:"shipping_address"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	OrderStatus     string          `json:"order_status"`
	CreatedAt       time.Time       `json:"created_at"`
	Existing        bool            `json:"-"`
}

// OrderItem is one line of an Order.
type OrderItem struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	IdempotencyKey string          `json:"idempotency_key"` // <payment_id>:item:<index>
	BookID         string          `json:"book_id"`
	Title          string          `json:"title"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	CreatedAt      time.Time       `json:"created_at"`
	Existing       bool            `json:"-"`
}

// Book is an inventory row.  Version increases on every stock change and
// guards concurrent updates.
type Book struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Version       uint32          `json:"version"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
