package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    "github.com/madhatv/payment-recovery/internal/config"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
    t.Helper()
    s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    require.NoError(t, err)
    return s
}

func serve(e *echo.Echo, header string) *httptest.ResponseRecorder {
    r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
    if header != "" {
        r.Header.Set(echo.HeaderAuthorization, header)
    }
    w := httptest.NewRecorder()
    e.ServeHTTP(w, r)
    return w
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/whoami", func(c echo.Context) error {
        return c.String(http.StatusOK, Operator(c)+"/"+Role(c))
    }, JWTAuth("secret"), RequireRole(RoleAdmin, RoleStaff))

    exp := time.Now().Add(time.Hour).Unix()
    cases := []struct {
        name   string
        header string
        code   int
        body   string
    }{
        {"no header", "", http.StatusUnauthorized, ""},
        {"not bearer", "Basic abc", http.StatusUnauthorized, ""},
        {"wrong secret", "Bearer " + sign(t, "other", jwt.MapClaims{"sub": "ops", "role": "STAFF", "exp": exp}), http.StatusUnauthorized, ""},
        {"expired", "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": "ops", "role": "STAFF", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized, ""},
        {"no subject", "Bearer " + sign(t, "secret", jwt.MapClaims{"role": "STAFF", "exp": exp}), http.StatusUnauthorized, ""},
        {"numeric subject", "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": 42, "role": "STAFF", "exp": exp}), http.StatusUnauthorized, ""},
        {"wrong role", "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": "ops", "role": "CUSTOMER", "exp": exp}), http.StatusForbidden, ""},
        {"staff", "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": "ops", "role": "STAFF", "exp": exp}), http.StatusOK, "ops/STAFF"},
        {"admin lower case", "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": "root", "role": "admin", "exp": exp}), http.StatusOK, "root/admin"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            w := serve(e, tc.header)
            assert.Equal(t, tc.code, w.Code)
            if tc.body != "" {
                assert.Equal(t, tc.body, w.Body.String())
            }
        })
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    r := httptest.NewRequest(http.MethodPost, "/v1/restore", nil)
    r.RemoteAddr = "10.0.0.7:5555"
    c := e.NewContext(r, httptest.NewRecorder())
    c.SetPath("/v1/restore")

    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
    assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))

    c.Set(ctxOperator, "ops")
    assert.Equal(t, "rl:user:ops", buildRateKey(cfg, c))

    cfg.KeyStrategy = ""
    assert.Equal(t, "rl:ip:10.0.0.7:user:ops:route:POST /v1/restore", buildRateKey(cfg, c))
}

func TestAsInt64(t *testing.T) {
    assert.Equal(t, int64(3), asInt64(int64(3)))
    assert.Equal(t, int64(4), asInt64(4.0))
    assert.Equal(t, int64(5), asInt64("5"))
    assert.Equal(t, int64(0), asInt64(nil))
}

func TestCachePayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
    require.NoError(t, err)

    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", got.Get("Content-Type"))
    assert.Equal(t, `{"items":[]}`, string(body))

    _, _, _, ok = decodePayload(bs[:6])
    assert.False(t, ok)
}

func TestCacheKeyUsesPrefix(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/recovery-history?limit=5", nil), httptest.NewRecorder())
    c.SetPath("/v1/recovery-history")
    cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
    k1 := cacheKeyFrom(cfg, c)
    assert.Regexp(t, `^cache:[0-9a-f]{40}$`, k1)

    c2 := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/recovery-history?limit=6", nil), httptest.NewRecorder())
    c2.SetPath("/v1/recovery-history")
    assert.NotEqual(t, k1, cacheKeyFrom(cfg, c2))

    cfg.KeyStrategy = "route"
    assert.Equal(t, cacheKeyFrom(cfg, c), cacheKeyFrom(cfg, c2))
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
    e := echo.New()
    e.GET("/whoami", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
        NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil),
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
    w := serve(e, "")
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Empty(t, w.Header().Get("X-Cache"))
    assert.NoError(t, InvalidateCache(context.Background(), nil, "cache"))
}

func TestRequestLogger(t *testing.T) {
    core, logs := observer.New(zapcore.InfoLevel)
    e := echo.New()
    e.Use(RequestLogger(zap.New(core)))
    e.GET("/whoami", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
    e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, "upstream") })

    serve(e, "")
    r := httptest.NewRequest(http.MethodGet, "/boom", nil)
    w := httptest.NewRecorder()
    e.ServeHTTP(w, r)
    assert.Equal(t, http.StatusBadGateway, w.Code)

    entries := logs.All()
    require.Len(t, entries, 2)
    assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
    assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
    assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
    assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}
