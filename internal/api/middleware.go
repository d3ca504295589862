package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/service"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

// BearerAuthMiddleware extracts and validates the access token, then
// stashes the verified claims in the echo context. The blacklist check
// runs first, before any signature work.
func BearerAuthMiddleware(tokens *service.SessionTokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := service.ExtractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			revoked, err := tokens.IsRevoked(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "error validating token")
			}
			if revoked {
				return service.ErrTokenRevoked
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				return err
			}

			c.Set(models.MwUserIDKey, claims.UserID)
			c.Set(models.MwUserEmailKey, claims.Email)
			c.Set(models.MwUserRoleKey, claims.Role)
			c.Set(models.MwSessionIDKey, claims.SessionID)
			c.Set(models.MwTokenKey, token)

			return next(c)
		}
	}
}

// APIKeyMiddleware guards the internal server-to-server endpoints with
// the Redis-synced gateway key.
func APIKeyMiddleware(apiKeys *service.APIKeyService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get(models.MwAPIKeyHeader)
			if apiKey == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "API key is missing")
			}

			valid, err := apiKeys.IsValidAPIKey(c.Request().Context(), apiKey)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Error validating API key")
			}
			if !valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid API key")
			}

			return next(c)
		}
	}
}

const (
	throttleSweepInterval = time.Minute
	throttleIdleTTL       = 3 * time.Minute
)

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// throttleRegistry hands out one token bucket per client address and
// drops buckets idle longer than throttleIdleTTL, so a scan across many
// source addresses cannot grow the map forever. An evicted address
// starts over with a full burst, which the idle TTL makes equivalent to
// a naturally refilled bucket.
type throttleRegistry struct {
	mu        sync.Mutex
	clients   map[string]*throttleEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newThrottleRegistry(cfg *util.ThrottleConfig) *throttleRegistry {
	return &throttleRegistry{
		clients:   make(map[string]*throttleEntry),
		limit:     rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:     cfg.Burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (r *throttleRegistry) limiterFor(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= throttleSweepInterval {
		for addr, entry := range r.clients {
			if now.Sub(entry.lastSeen) > throttleIdleTTL {
				delete(r.clients, addr)
			}
		}
		r.lastSweep = now
	}

	entry, ok := r.clients[ip]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (r *throttleRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}

// ThrottleMiddleware applies a per-IP token bucket in front of the auth
// endpoints. This is transport-level back-pressure only; the
// token-generation counter inside the auth service has its own fixed
// semantics.
func ThrottleMiddleware(cfg *util.ThrottleConfig) echo.MiddlewareFunc {
	registry := newThrottleRegistry(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !registry.limiterFor(c.RealIP()).Allow() {
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
