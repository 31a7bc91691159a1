package middleware

// identity.go holds the context keys written by JWTAuth and the helpers
// handlers use to read them back.

import "github.com/labstack/echo/v4"

const (
    ctxOperator = "operator"
    ctxRole     = "role"
)

// Operator returns the authenticated operator identity, or "" when the
// request carries none.
func Operator(c echo.Context) string {
    if v, ok := c.Get(ctxOperator).(string); ok {
        return v
    }
    return ""
}

// Role returns the authenticated operator's role, or "".
func Role(c echo.Context) string {
    if v, ok := c.Get(ctxRole).(string); ok {
        return v
    }
    return ""
}
