package reconcile

import "github.com/madhatv/payment-recovery/internal/model"

// StockAdjustment reports one inventory change made for a cart line.
type StockAdjustment struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

// Outcome is the structured result of one restore attempt.  It is filled
// in as far as the attempt got, also when an error is returned.
type Outcome struct {
	RecordID         string              `json:"record_id"`
	PaymentID        string              `json:"payment_id"`
	Purpose          model.Purpose       `json:"purpose"`
	Status           model.RestoreStatus `json:"status"`
	RestoredOrderID  string              `json:"restored_order_id,omitempty"`
	CreatedIDs       []string            `json:"created_ids"`
	StockAdjustments []StockAdjustment   `json:"stock_adjustments"`
	Warnings         []string            `json:"warnings"`
	Message          string              `json:"message"`
}

func newOutcome(rec model.FailedPayment) Outcome {
	return Outcome{
		RecordID:         rec.ID,
		PaymentID:        rec.PaymentID,
		Purpose:          rec.Purpose,
		Status:           rec.Status,
		RestoredOrderID:  rec.RestoredOrderID,
		CreatedIDs:       []string{},
		StockAdjustments: []StockAdjustment{},
		Warnings:         []string{},
	}
}

func (o *Outcome) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}
