package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/madhatv/payment-recovery/internal/model"
)

const defaultShippingAddress = "N/A"

func bookingKey(paymentID string, i int) string { return fmt.Sprintf("%s:booking:%d", paymentID, i) }
func orderKey(paymentID string) string         { return paymentID + ":order" }
func itemKey(paymentID string, i int) string    { return fmt.Sprintf("%s:item:%d", paymentID, i) }

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func userInfoOrEmpty(u *model.UserInfo) model.UserInfo {
	if u == nil {
		return model.UserInfo{}
	}
	return *u
}

// buildBookings turns the booking drafts into confirmed bookings.  Draft
// fields win; missing customer fields come from the snapshot's user info
// and then from the record itself.
func buildBookings(rec model.FailedPayment, data *model.ServiceBookingData) []model.Booking {
	ui := userInfoOrEmpty(data.UserInfo)
	out := make([]model.Booking, 0, len(data.Bookings))
	for i, d := range data.Bookings {
		out = append(out, model.Booking{
			OrderID:         strings.TrimSpace(d.OrderID),
			IdempotencyKey:  bookingKey(rec.PaymentID, i),
			PaymentID:       rec.PaymentID,
			UserID:          firstNonEmpty(d.UserID, ui.UserID, rec.UserID),
			UserName:        firstNonEmpty(d.UserName, ui.Name, rec.UserName),
			Email:           firstNonEmpty(d.Email, ui.Email, rec.Email),
			Mobile:          firstNonEmpty(d.Mobile, ui.Mobile, rec.Mobile),
			ServiceType:     d.ServiceType,
			BookingDate:     d.BookingDate,
			BeneficiaryName: d.BeneficiaryName,
			Intention:       d.Intention,
			Amount:          d.Amount,
			BaseAmount:      d.BaseAmount,
			TaxAmount:       d.TaxAmount,
			CGST:            d.CGST,
			SGST:            d.SGST,
			Currency:        firstNonEmpty(d.Currency, rec.Currency),
			PaymentStatus:   model.PaymentStatusCompleted,
			Status:          model.BookingStatusConfirmed,
		})
	}
	return out
}

// bookingsRestoredID is the first booking's order id, or its own id when
// the booking was not grouped under an order.
func bookingsRestoredID(bookings []model.Booking) string {
	if len(bookings) == 0 {
		return ""
	}
	return firstNonEmpty(bookings[0].OrderID, bookings[0].ID)
}

// cartTotal sums price*quantity over the cart.
func cartTotal(cart []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range cart {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// buildOrder builds the book order.  The shipping address falls back from
// user_info.address to shipping_address to "N/A"; the total is the amount
// actually paid, or the cart sum when the record has none.
func buildOrder(rec model.FailedPayment, data *model.BuyBooksData) model.Order {
	ui := userInfoOrEmpty(data.UserInfo)
	total := rec.Amount
	if !total.IsPositive() {
		total = cartTotal(data.Cart)
	}
	return model.Order{
		IdempotencyKey:  orderKey(rec.PaymentID),
		PaymentID:       rec.PaymentID,
		UserID:          firstNonEmpty(ui.UserID, rec.UserID),
		CustomerName:    firstNonEmpty(ui.Name, rec.UserName),
		Email:           firstNonEmpty(ui.Email, rec.Email),
		Mobile:          firstNonEmpty(ui.Mobile, rec.Mobile),
		ShippingAddress: firstNonEmpty(ui.Address, data.ShippingAddress, defaultShippingAddress),
		TotalAmount:     total,
		Currency:        rec.Currency,
		PaymentMethod:   rec.PaymentMethod,
		PaymentStatus:   model.PaymentStatusCompleted,
		OrderStatus:     model.OrderStatusPending,
	}
}

func buildOrderItems(rec model.FailedPayment, orderID string, cart []model.CartItem) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(cart))
	for i, it := range cart {
		out = append(out, model.OrderItem{
			OrderID:        orderID,
			IdempotencyKey: itemKey(rec.PaymentID, i),
			BookID:         strings.TrimSpace(it.ID),
			Title:          it.Title,
			Quantity:       it.Quantity,
			Price:          it.Price,
		})
	}
	return out
}

// recipient picks the address confirmations go to: the record's email,
// then the snapshot's user info, then the first booking draft.
func recipient(rec model.FailedPayment, data model.PaymentData) string {
	var ui *model.UserInfo
	draftEmail := ""
	switch {
	case data.Bookings != nil:
		ui = data.Bookings.UserInfo
		if len(data.Bookings.Bookings) > 0 {
			draftEmail = data.Bookings.Bookings[0].Email
		}
	case data.Books != nil:
		ui = data.Books.UserInfo
	}
	return firstNonEmpty(rec.Email, userInfoOrEmpty(ui).Email, draftEmail)
}
