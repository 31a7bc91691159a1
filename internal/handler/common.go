package handler // handler holds the echo handlers of the back-office API

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/madhatv/payment-recovery/internal/reconcile"
    "github.com/madhatv/payment-recovery/internal/repository"
)

const (
    defaultPageSize = 50
    maxPageSize     = 500
)

// page reads ?limit=&offset= with defaults and bounds.
func page(c echo.Context) (limit, offset int, err error) {
    limit, offset = defaultPageSize, 0
    if v := c.QueryParam("limit"); v != "" {
        if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
            return 0, 0, errors.New("invalid limit")
        }
        if limit > maxPageSize {
            limit = maxPageSize
        }
    }
    if v := c.QueryParam("offset"); v != "" {
        if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
            return 0, 0, errors.New("invalid offset")
        }
    }
    return limit, offset, nil
}

// restoreStatus maps a restore error to its HTTP status code.
func restoreStatus(err error) int {
    switch {
    case errors.Is(err, reconcile.ErrOperatorRequired):
        return http.StatusBadRequest
    case errors.Is(err, reconcile.ErrNotFound), errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, reconcile.ErrAlreadyRestored), errors.Is(err, reconcile.ErrRestoreInProgress):
        return http.StatusConflict
    case errors.Is(err, reconcile.ErrMissingPaymentData),
        errors.Is(err, reconcile.ErrUnknownPurpose),
        errors.Is(err, reconcile.ErrNotRestorable):
        return http.StatusUnprocessableEntity
    case errors.Is(err, reconcile.ErrPersistence):
        return http.StatusBadGateway
    default:
        return http.StatusInternalServerError
    }
}
