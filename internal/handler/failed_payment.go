package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/madhatv/payment-recovery/internal/middleware"
    "github.com/madhatv/payment-recovery/internal/model"
    "github.com/madhatv/payment-recovery/internal/reconcile"
    "github.com/madhatv/payment-recovery/internal/repository"
)

// PaymentReader is the read side of the failed payment store.
type PaymentReader interface {
    List(ctx context.Context, f repository.FailedPaymentFilter) ([]model.FailedPayment, error)
    Get(ctx context.Context, id string) (model.FailedPayment, error)
    ListRestored(ctx context.Context, limit, offset int) ([]model.FailedPayment, error)
}

// Restorer runs one restore.  *reconcile.Engine implements it.
type Restorer interface {
    Restore(ctx context.Context, recordID, operator string) (reconcile.Outcome, error)
}

// FailedPaymentHandler serves the failed payment list and the restore action.
type FailedPaymentHandler struct {
    Payments PaymentReader
    Engine   Restorer
    // AfterRestore runs after every successful restore, e.g. to drop
    // cached recovery history.  Optional.
    AfterRestore func(ctx context.Context)
    Log          *zap.Logger
}

// NewFailedPaymentHandler panics on missing dependencies, like the other
// handler constructors.
func NewFailedPaymentHandler(payments PaymentReader, engine Restorer, log *zap.Logger) *FailedPaymentHandler {
    if payments == nil || engine == nil {
        panic("nil dependency passed to NewFailedPaymentHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &FailedPaymentHandler{Payments: payments, Engine: engine, Log: log.Named("handler")}
}

// List handles GET /v1/failed-payments?status=&purpose=&limit=&offset=.
func (h *FailedPaymentHandler) List(c echo.Context) error {
    limit, offset, err := page(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    f := repository.FailedPaymentFilter{Limit: limit, Offset: offset}
    if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
        f.Status = model.RestoreStatus(strings.ToUpper(s))
        if !f.Status.Valid() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
        }
    }
    if p := strings.TrimSpace(c.QueryParam("purpose")); p != "" {
        f.Purpose = model.Purpose(strings.ToLower(p))
        if !f.Purpose.Valid() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purpose"})
        }
    }
    items, err := h.Payments.List(c.Request().Context(), f)
    if err != nil {
        h.Log.Error("list failed payments", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "limit": limit, "offset": offset})
}

// Get handles GET /v1/failed-payments/:id.
func (h *FailedPaymentHandler) Get(c echo.Context) error {
    rec, err := h.Payments.Get(c.Request().Context(), c.Param("id"))
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "failed payment not found"})
    }
    if err != nil {
        h.Log.Error("get failed payment", zap.String("id", c.Param("id")), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
    }
    return c.JSON(http.StatusOK, rec)
}

// Restore handles POST /v1/failed-payments/:id/restore.  The operator is
// the token subject; a body {"operator": "..."} is only used when the
// request carries no identity.
func (h *FailedPaymentHandler) Restore(c echo.Context) error {
    var body struct {
        Operator string `json:"operator"`
    }
    if c.Request().ContentLength > 0 {
        if err := c.Bind(&body); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
        }
    }
    return h.restore(c, c.Param("id"), firstOperator(middleware.Operator(c), body.Operator))
}

// RestoreRPC handles POST /v1/restore with
// {"payment_record_id": "...", "operator_identity": "..."}.
func (h *FailedPaymentHandler) RestoreRPC(c echo.Context) error {
    var body struct {
        RecordID string `json:"payment_record_id"`
        Operator string `json:"operator_identity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    id := strings.TrimSpace(body.RecordID)
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_record_id is required"})
    }
    return h.restore(c, id, firstOperator(middleware.Operator(c), body.Operator))
}

func (h *FailedPaymentHandler) restore(c echo.Context, id, operator string) error {
    ctx := c.Request().Context()
    out, err := h.Engine.Restore(ctx, id, operator)
    if err != nil {
        status := restoreStatus(err)
        if status >= http.StatusInternalServerError {
            h.Log.Error("restore failed", zap.String("id", id), zap.String("operator", operator), zap.Error(err))
        }
        return c.JSON(status, echo.Map{"error": err.Error(), "outcome": out})
    }
    if h.AfterRestore != nil {
        h.AfterRestore(context.WithoutCancel(ctx))
    }
    return c.JSON(http.StatusOK, out)
}

func firstOperator(vals ...string) string {
    for _, v := range vals {
        if v = strings.TrimSpace(v); v != "" {
            return v
        }
    }
    return ""
}
