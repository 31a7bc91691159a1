package handler

import (
    "bytes"
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/madhatv/payment-recovery/internal/export"
    "github.com/madhatv/payment-recovery/internal/model"
)

const (
    exportPageSize = 1000
    exportMaxRows  = 50000
)

// AuditReader reads the audit trail.
type AuditReader interface {
    List(ctx context.Context, entityID string, limit int) ([]model.AuditLog, error)
}

// HistoryHandler serves the recovery history, its spreadsheet export and
// the audit trail of restore attempts.
type HistoryHandler struct {
    Payments PaymentReader
    Audit    AuditReader
    Log      *zap.Logger
    now      func() time.Time
}

// NewHistoryHandler returns a HistoryHandler.
func NewHistoryHandler(payments PaymentReader, audit AuditReader, log *zap.Logger) *HistoryHandler {
    if payments == nil || audit == nil {
        panic("nil dependency passed to NewHistoryHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &HistoryHandler{Payments: payments, Audit: audit, Log: log.Named("handler"), now: time.Now}
}

// List handles GET /v1/recovery-history?limit=&offset=.
func (h *HistoryHandler) List(c echo.Context) error {
    limit, offset, err := page(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    items, err := h.Payments.ListRestored(c.Request().Context(), limit, offset)
    if err != nil {
        h.Log.Error("list recovery history", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "limit": limit, "offset": offset})
}

// Export handles GET /v1/recovery-history/export and streams an XLSX
// workbook of every restored record.
func (h *HistoryHandler) Export(c echo.Context) error {
    ctx := c.Request().Context()
    records := make([]model.FailedPayment, 0)
    for offset := 0; offset < exportMaxRows; offset += exportPageSize {
        batch, err := h.Payments.ListRestored(ctx, exportPageSize, offset)
        if err != nil {
            h.Log.Error("export recovery history", zap.Error(err))
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
        }
        records = append(records, batch...)
        if len(batch) < exportPageSize {
            break
        }
    }

    var buf bytes.Buffer
    if err := export.WriteRecoveryHistory(&buf, records); err != nil {
        h.Log.Error("render recovery history", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(h.now())+`"`)
    return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// AuditLogs handles GET /v1/audit-logs?entity_id=&limit=.
func (h *HistoryHandler) AuditLogs(c echo.Context) error {
    limit, _, err := page(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    items, err := h.Audit.List(c.Request().Context(), c.QueryParam("entity_id"), limit)
    if err != nil {
        h.Log.Error("list audit logs", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
