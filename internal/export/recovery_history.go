// Package export renders back-office spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/madhatv/payment-recovery/internal/model"
)

// SheetName is the worksheet holding the recovery history.
const SheetName = "Recovery History"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var historyHeader = []any{
	"Record ID", "Payment ID", "Purpose", "Status", "Amount", "Currency", "Payment Method",
	"Customer", "Email", "Mobile", "Restored Order ID", "Restored By", "Restored At", "Created At", "Errors",
}

// WriteRecoveryHistory writes records as an XLSX workbook to w.  Amounts
// are written as numbers so they can be summed in the spreadsheet.
func WriteRecoveryHistory(w io.Writer, records []model.FailedPayment) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	header := make([]any, len(historyHeader))
	for i, h := range historyHeader {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range records {
		amount, _ := r.Amount.Float64()
		restoredAt := ""
		if r.RestoredAt != nil {
			restoredAt = r.RestoredAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			r.ID, r.PaymentID, string(r.Purpose), string(r.Status), amount, r.Currency, r.PaymentMethod,
			r.UserName, r.Email, r.Mobile, r.RestoredOrderID, r.RestoredBy, restoredAt,
			r.CreatedAt.UTC().Format(time.RFC3339), r.ErrorMessage,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// FileName returns the download name for an export taken at t.
func FileName(t time.Time) string {
	return "recovery-history-" + t.UTC().Format("20060102-150405") + ".xlsx"
}
