package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// Roles allowed to use the back office.
const (
    RoleAdmin = "ADMIN"
    RoleStaff = "STAFF"
)

// RequireRole rejects requests whose role (set by JWTAuth) is not one of
// roles with 403 Forbidden.  Roles compare case-insensitively.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[strings.ToUpper(r)] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[strings.ToUpper(Role(c))] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
