package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatv/payment-recovery/internal/model"
)

func TestSumBookings(t *testing.T) {
	totals := SumBookings([]model.Booking{
		{Amount: d("118"), BaseAmount: d("100"), TaxAmount: d("18"), CGST: d("9"), SGST: d("9")},
		{Amount: d("59"), BaseAmount: d("50"), TaxAmount: d("9"), CGST: d("4.5"), SGST: d("4.5")},
	})
	assert.Equal(t, "150.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "13.50", totals.CGST.StringFixed(2))
	assert.Equal(t, "13.50", totals.SGST.StringFixed(2))
	assert.Equal(t, "27.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "177.00", totals.Total.StringFixed(2))

	empty := SumBookings(nil)
	assert.True(t, empty.Total.IsZero())
}

func TestBookingInvoice(t *testing.T) {
	rec := model.FailedPayment{PaymentID: "pay_9", UserName: "Mary", Currency: "INR"}
	msg, err := BookingInvoice(rec, "mary@example.com", []model.Booking{
		{ID: "b-1", ServiceType: "mass", BookingDate: "2026-03-01", BeneficiaryName: "Joseph", Amount: d("118"), Currency: "INR",
			BaseAmount: d("100"), TaxAmount: d("18"), CGST: d("9"), SGST: d("9")},
	})
	require.NoError(t, err)
	assert.Equal(t, "mary@example.com", msg.To)
	assert.Equal(t, "Booking confirmed - payment pay_9", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, "Dear Mary,"))
	assert.Contains(t, msg.Body, "1. mass on 2026-03-01 for Joseph  118.00 INR")
	assert.Contains(t, msg.Body, "Reference: b-1")
}

func TestOrderInvoice(t *testing.T) {
	msg, err := OrderInvoice("a@x", model.Order{ID: "ord-1", PaymentID: "pay_1", CustomerName: "Mary",
		TotalAmount: d("250"), Currency: "INR", ShippingAddress: "N/A"},
		[]model.OrderItem{{Title: "Bible", Quantity: 2, Price: d("100")}, {Title: "Psalms", Quantity: 1, Price: d("50")}})
	require.NoError(t, err)
	assert.Equal(t, "Order #ord-1 confirmed", msg.Subject)
	assert.Contains(t, msg.Body, "1. Bible x2  200.00")
	assert.Contains(t, msg.Body, "2. Psalms x1  50.00")
	assert.Contains(t, msg.Body, "Total: 250.00 INR")
	assert.Contains(t, msg.Body, "Ship to: N/A")
}
