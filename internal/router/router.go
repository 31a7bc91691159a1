package router // package router registers the HTTP routes of the back office

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/madhatv/payment-recovery/internal/config"
    "github.com/madhatv/payment-recovery/internal/handler"
    "github.com/madhatv/payment-recovery/internal/middleware"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health)
    if db != nil {
        e.GET("/readyz", handler.Ready(db))
    }
}

// API bundles what the /v1 routes need.  Redis is optional; without it
// rate limiting and caching are pass-through.
type API struct {
    JWTSecret      string
    FailedPayments *handler.FailedPaymentHandler
    History        *handler.HistoryHandler
    Redis          *redis.Client
    RateLimit      config.RateLimitConfig
    Cache          config.CacheConfig
    Log            *zap.Logger
}

// RegisterAPI registers the operator API under /v1.  Every route needs a
// valid token with role ADMIN or STAFF.
func RegisterAPI(e *echo.Echo, a API) {
    v1 := e.Group("/v1")
    v1.Use(middleware.JWTAuth(a.JWTSecret))
    v1.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleStaff))
    // Keyed by operator, so it must run after JWTAuth.
    v1.Use(middleware.NewTokenBucket(a.RateLimit, a.Redis, a.Log))

    v1.GET("/failed-payments", a.FailedPayments.List)
    v1.GET("/failed-payments/:id", a.FailedPayments.Get)
    v1.POST("/failed-payments/:id/restore", a.FailedPayments.Restore)
    v1.POST("/restore", a.FailedPayments.RestoreRPC)

    cache := middleware.NewRedisCache(a.Cache, a.Redis, a.Log)
    v1.GET("/recovery-history", a.History.List, cache)
    v1.GET("/recovery-history/export", a.History.Export)
    v1.GET("/audit-logs", a.History.AuditLogs)
}
