package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// RequestLogger logs one line per request with zap.  Server errors log at
// error level, client errors at warn, everything else at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("http")
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // Let echo write the error response so the status is known.
                c.Error(err)
            }

            status := c.Response().Status
            fields := []zap.Field{
                zap.String("method", c.Request().Method),
                zap.String("path", c.Path()),
                zap.String("uri", c.Request().RequestURI),
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("ip", c.RealIP()),
                zap.Int64("bytes_out", c.Response().Size),
            }
            if op := Operator(c); op != "" {
                fields = append(fields, zap.String("operator", op))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }

            lvl := zapcore.InfoLevel
            switch {
            case status >= 500:
                lvl = zapcore.ErrorLevel
            case status >= 400:
                lvl = zapcore.WarnLevel
            }
            log.Check(lvl, "request").Write(fields...)
            return nil
        }
    }
}
