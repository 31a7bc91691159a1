package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatv/payment-recovery/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildOrder_ShippingAddressFallback(t *testing.T) {
	rec := model.FailedPayment{PaymentID: "pay_1", UserName: "Rec Name", Email: "rec@example.com", Amount: d("0"), Currency: "INR"}
	cart := []model.CartItem{{ID: "B1", Quantity: 2, Price: d("100")}, {ID: "B2", Quantity: 1, Price: d("50.5")}}

	tests := []struct {
		name string
		data model.BuyBooksData
		want string
	}{
		{name: "user info address", data: model.BuyBooksData{Cart: cart, UserInfo: &model.UserInfo{Address: "1 Main"}, ShippingAddress: "2 Side"}, want: "1 Main"},
		{name: "shipping address", data: model.BuyBooksData{Cart: cart, UserInfo: &model.UserInfo{Address: "  "}, ShippingAddress: "2 Side"}, want: "2 Side"},
		{name: "nothing", data: model.BuyBooksData{Cart: cart}, want: "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := buildOrder(rec, &tt.data)
			assert.Equal(t, tt.want, o.ShippingAddress)
			assert.Equal(t, "pay_1:order", o.IdempotencyKey)
			// amount on the record is zero, so the cart sum is used
			assert.True(t, d("250.5").Equal(o.TotalAmount), o.TotalAmount.String())
		})
	}
}

func TestBuildOrder_CustomerFields(t *testing.T) {
	rec := model.FailedPayment{PaymentID: "p", UserName: "Rec", Email: "rec@x", Mobile: "1", UserID: "u-rec", Amount: d("99")}
	o := buildOrder(rec, &model.BuyBooksData{
		Cart:     []model.CartItem{{ID: "B1", Quantity: 1, Price: d("10")}},
		UserInfo: &model.UserInfo{Name: "Info", Email: "info@x"},
	})
	assert.Equal(t, "Info", o.CustomerName)
	assert.Equal(t, "info@x", o.Email)
	assert.Equal(t, "1", o.Mobile)
	assert.Equal(t, "u-rec", o.UserID)
	assert.True(t, d("99").Equal(o.TotalAmount))
	assert.Equal(t, model.PaymentStatusCompleted, o.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, o.OrderStatus)
}

func TestBuildOrderItems(t *testing.T) {
	items := buildOrderItems(model.FailedPayment{PaymentID: "p"}, "ord-1", []model.CartItem{
		{ID: " B1 ", Quantity: 2, Price: d("10"), Title: "Bible"},
		{ID: "B2", Quantity: 1, Price: d("5"), Title: "Psalms"},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "B1", items[0].BookID)
	assert.Equal(t, "p:item:0", items[0].IdempotencyKey)
	assert.Equal(t, "p:item:1", items[1].IdempotencyKey)
	assert.Equal(t, "ord-1", items[1].OrderID)
}

func TestBuildBookings_Fallbacks(t *testing.T) {
	rec := model.FailedPayment{PaymentID: "p", UserName: "Rec", Email: "rec@x", UserID: "u-rec", Currency: "INR"}
	data := &model.ServiceBookingData{
		Bookings: []model.BookingDraft{
			{ServiceType: "mass", UserName: "Draft", Currency: "USD"},
			{ServiceType: "prayer"},
		},
		UserInfo: &model.UserInfo{Email: "info@x"},
	}
	got := buildBookings(rec, data)
	require.Len(t, got, 2)
	assert.Equal(t, "Draft", got[0].UserName)
	assert.Equal(t, "USD", got[0].Currency)
	assert.Equal(t, "Rec", got[1].UserName)
	assert.Equal(t, "INR", got[1].Currency)
	assert.Equal(t, "info@x", got[1].Email)
	assert.Equal(t, "u-rec", got[1].UserID)
	assert.Equal(t, "p:booking:1", got[1].IdempotencyKey)
	assert.Equal(t, model.BookingStatusConfirmed, got[1].Status)
}

func TestBookingsRestoredID(t *testing.T) {
	assert.Equal(t, "", bookingsRestoredID(nil))
	assert.Equal(t, "b-1", bookingsRestoredID([]model.Booking{{ID: "b-1"}, {ID: "b-2", OrderID: "o-2"}}))
	assert.Equal(t, "o-1", bookingsRestoredID([]model.Booking{{ID: "b-1", OrderID: "o-1"}}))
}

func TestRecipient(t *testing.T) {
	books := model.PaymentData{Purpose: model.PurposeBuyBooks, Books: &model.BuyBooksData{UserInfo: &model.UserInfo{Email: "info@x"}}}
	assert.Equal(t, "rec@x", recipient(model.FailedPayment{Email: "rec@x"}, books))
	assert.Equal(t, "info@x", recipient(model.FailedPayment{}, books))

	bookings := model.PaymentData{Purpose: model.PurposeServiceBooking, Bookings: &model.ServiceBookingData{
		Bookings: []model.BookingDraft{{Email: "draft@x"}},
	}}
	assert.Equal(t, "draft@x", recipient(model.FailedPayment{}, bookings))
}
