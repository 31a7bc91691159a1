package reconcile

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/notify"
)

// InvoiceTotals aggregates the tax components of a set of bookings.
type InvoiceTotals struct {
	Subtotal decimal.Decimal
	CGST     decimal.Decimal
	SGST     decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// SumBookings totals base amount, CGST, SGST, tax and amount across bookings.
func SumBookings(bookings []model.Booking) InvoiceTotals {
	t := InvoiceTotals{
		Subtotal: decimal.Zero, CGST: decimal.Zero, SGST: decimal.Zero,
		Tax: decimal.Zero, Total: decimal.Zero,
	}
	for _, b := range bookings {
		t.Subtotal = t.Subtotal.Add(b.BaseAmount)
		t.CGST = t.CGST.Add(b.CGST)
		t.SGST = t.SGST.Add(b.SGST)
		t.Tax = t.Tax.Add(b.TaxAmount)
		t.Total = t.Total.Add(b.Amount)
	}
	return t
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"lineTotal": func(it model.OrderItem) string {
		return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2)
	},
	"inc": func(i int) int { return i + 1 },
}

var bookingInvoiceTmpl = template.Must(template.New("booking").Funcs(funcs).Parse(
	`Dear {{.Name}},

Your payment {{.PaymentID}} has been received and your booking is confirmed.

{{range $i, $b := .Bookings}}{{inc $i}}. {{$b.ServiceType}}{{if $b.BookingDate}} on {{$b.BookingDate}}{{end}}{{if $b.BeneficiaryName}} for {{$b.BeneficiaryName}}{{end}}  {{money $b.Amount}} {{$b.Currency}}
{{end}}
Subtotal: {{money .Totals.Subtotal}}
CGST:     {{money .Totals.CGST}}
SGST:     {{money .Totals.SGST}}
Tax:      {{money .Totals.Tax}}
Total:    {{money .Totals.Total}} {{.Currency}}

Reference: {{.Reference}}
`))

var orderInvoiceTmpl = template.Must(template.New("order").Funcs(funcs).Parse(
	`Dear {{.Order.CustomerName}},

Your payment {{.Order.PaymentID}} has been received and your book order #{{.Order.ID}} is being processed.

{{range $i, $it := .Items}}{{inc $i}}. {{$it.Title}} x{{$it.Quantity}}  {{lineTotal $it}}
{{end}}
Total: {{money .Order.TotalAmount}} {{.Order.Currency}}
Ship to: {{.Order.ShippingAddress}}
`))

// BookingInvoice renders the confirmation for restored bookings.
func BookingInvoice(rec model.FailedPayment, to string, bookings []model.Booking) (notify.Message, error) {
	var buf bytes.Buffer
	err := bookingInvoiceTmpl.Execute(&buf, map[string]any{
		"Name":      firstNonEmpty(rec.UserName, firstBookingName(bookings), "devotee"),
		"PaymentID": rec.PaymentID,
		"Bookings":  bookings,
		"Totals":    SumBookings(bookings),
		"Currency":  rec.Currency,
		"Reference": bookingsRestoredID(bookings),
	})
	if err != nil {
		return notify.Message{}, fmt.Errorf("render booking invoice: %w", err)
	}
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Booking confirmed - payment %s", rec.PaymentID),
		Body:    buf.String(),
	}, nil
}

// OrderInvoice renders the confirmation for a restored book order.
func OrderInvoice(to string, order model.Order, items []model.OrderItem) (notify.Message, error) {
	var buf bytes.Buffer
	if err := orderInvoiceTmpl.Execute(&buf, map[string]any{"Order": order, "Items": items}); err != nil {
		return notify.Message{}, fmt.Errorf("render order invoice: %w", err)
	}
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Order #%s confirmed", order.ID),
		Body:    buf.String(),
	}, nil
}

func firstBookingName(bookings []model.Booking) string {
	if len(bookings) == 0 {
		return ""
	}
	return bookings[0].UserName
}
