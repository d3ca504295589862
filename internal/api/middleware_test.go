package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/service"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage/memory"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

func testTokenService() *service.SessionTokenService {
	cfg := &util.TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "cyberprobes-api",
		Audience:      "cyberprobes-clients",
	}
	return service.NewSessionTokenService(cfg, memory.NewTokenBlacklist())
}

func newBearerEcho(tokens *service.SessionTokenService) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop().Sugar())
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id": c.Get(models.MwUserIDKey),
			"email":   c.Get(models.MwUserEmailKey),
		})
	}, BearerAuthMiddleware(tokens))
	return e
}

func doRequest(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuthAcceptsValidToken(t *testing.T) {
	tokens := testTokenService()
	e := newBearerEcho(tokens)

	user := &models.User{ID: 1, Email: "u1@x.com", Role: models.RoleUser}
	token, err := tokens.GenerateAccessToken(user, "s1")
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"user_id":"1"`)
	require.Contains(t, rec.Body.String(), `"email":"u1@x.com"`)
}

func TestBearerAuthRejectsBadHeaders(t *testing.T) {
	tokens := testTokenService()
	e := newBearerEcho(tokens)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer not.a.jwt"} {
		rec := doRequest(e, header)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestBearerAuthRejectsRevokedToken(t *testing.T) {
	tokens := testTokenService()
	e := newBearerEcho(tokens)

	user := &models.User{ID: 1, Email: "u1@x.com", Role: models.RoleUser}
	token, err := tokens.GenerateAccessToken(user, "s1")
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(context.Background(), token))

	rec := doRequest(e, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuthRejectsRefreshToken(t *testing.T) {
	tokens := testTokenService()
	e := newBearerEcho(tokens)

	refreshToken, err := tokens.GenerateRefreshToken(1, "s1")
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+refreshToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestThrottleMiddleware(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop().Sugar())
	e.GET("/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, ThrottleMiddleware(&util.ThrottleConfig{RequestsPerMinute: 60, Burst: 2}))

	ping := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, ping("10.0.0.1"))
	require.Equal(t, http.StatusOK, ping("10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, ping("10.0.0.1"))

	// Buckets are per client address.
	require.Equal(t, http.StatusOK, ping("10.0.0.2"))
}

func TestThrottleRegistrySweepsIdleClients(t *testing.T) {
	r := newThrottleRegistry(&util.ThrottleConfig{RequestsPerMinute: 60, Burst: 2})
	base := time.Now()
	r.lastSweep = base
	r.now = func() time.Time { return base }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		r.limiterFor(ip)
	}
	require.Equal(t, 3, r.size())

	// A sweep before the idle cutoff keeps every bucket.
	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	r.limiterFor("10.0.0.1")
	require.Equal(t, 3, r.size())

	// Past the cutoff only the recently active address survives.
	r.now = func() time.Time { return base.Add(5 * time.Minute) }
	r.limiterFor("10.0.0.1")
	require.Equal(t, 1, r.size())
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Setenv("GATEWAY_API_KEY", "gw-key-one")

	apiKeys := service.NewAPIKeyService(memory.NewGatewayKeyStore(), zap.NewNop().Sugar())
	require.NoError(t, apiKeys.SyncAPIKey(context.Background()))

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop().Sugar())
	e.POST("/grant", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, APIKeyMiddleware(apiKeys))

	issue := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/grant", nil)
		if key != "" {
			req.Header.Set(models.MwAPIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, issue("gw-key-one"))
	require.Equal(t, http.StatusUnauthorized, issue(""))
	require.Equal(t, http.StatusUnauthorized, issue("gw-key-two"))
}

func TestErrorHandlerRateLimit(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop().Sugar())
	e.GET("/login", func(c echo.Context) error {
		return service.RateLimitError{RetryAfter: 42 * time.Second}
	})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "42", rec.Header().Get("Retry-After"))
}

func TestErrorHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid token", service.ErrTokenInvalid, http.StatusUnauthorized},
		{"revoked token", service.ErrTokenRevoked, http.StatusUnauthorized},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"playback denied", service.ErrPlaybackDenied, http.StatusForbidden},
		{"response error", util.NewResponseError(http.StatusConflict, "nope"), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = ErrorHandler(zap.NewNop().Sugar())
			e.GET("/x", func(c echo.Context) error { return tc.err })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}
