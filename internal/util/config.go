package util

import (
	"bytes"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	defaultSignedURLTTL  = time.Hour
	defaultCapabilityTTL = time.Hour

	defaultTokenIssuer   = "cyberprobes-api"
	defaultTokenAudience = "cyberprobes-clients"

	defaultAttemptLimit  = 10
	defaultAttemptWindow = time.Hour

	defaultThrottleRPM   = 30
	defaultThrottleBurst = 10

	JWTLeeway = 5 * time.Second
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

// SigningConfig holds the HMAC secrets for the two capability formats.
// Both secrets are required: a playback URL must never be signed under a
// guessable default.
type SigningConfig struct {
	URLSecret        []byte
	CapabilitySecret []byte
	SignedURLTTL     time.Duration
	CapabilityTTL    time.Duration
}

func NewSigningConfig() *SigningConfig {
	urlSecret := os.Getenv("VIDEO_URL_SECRET")
	if urlSecret == "" {
		log.Fatal("VIDEO_URL_SECRET is not set")
	}
	capSecret := os.Getenv("CONTENT_TOKEN_SECRET")
	if capSecret == "" {
		log.Fatal("CONTENT_TOKEN_SECRET is not set")
	}
	return &SigningConfig{
		URLSecret:        []byte(urlSecret),
		CapabilitySecret: []byte(capSecret),
		SignedURLTTL:     parseDurationOrDefault("SIGNED_URL_TTL", defaultSignedURLTTL),
		CapabilityTTL:    parseDurationOrDefault("CONTENT_TOKEN_TTL", defaultCapabilityTTL),
	}
}

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

func NewTokenConfig() *TokenConfig {
	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	if accessSecret == "" {
		log.Fatal("JWT_ACCESS_SECRET is not set")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		log.Fatal("JWT_REFRESH_SECRET is not set")
	}
	// A shared secret would let a refresh token pass the access verifier.
	if bytes.Equal([]byte(accessSecret), []byte(refreshSecret)) {
		log.Fatal("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	issuer := os.Getenv("TOKEN_ISSUER")
	if issuer == "" {
		issuer = defaultTokenIssuer
	}
	audience := os.Getenv("TOKEN_AUDIENCE")
	if audience == "" {
		audience = defaultTokenAudience
	}

	return &TokenConfig{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:    parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
		Issuer:        issuer,
		Audience:      audience,
	}
}

type RateLimiterConfig struct {
	Limit  int
	Window time.Duration
}

func NewRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Limit:  parseIntOrDefault("TOKEN_RATE_LIMIT", defaultAttemptLimit),
		Window: parseDurationOrDefault("TOKEN_RATE_WINDOW", defaultAttemptWindow),
	}
}

// ThrottleConfig tunes the per-IP request throttle in front of the auth
// endpoints. Transport-level protection, independent of the
// token-generation counter.
type ThrottleConfig struct {
	RequestsPerMinute int
	Burst             int
}

func NewThrottleConfig() *ThrottleConfig {
	return &ThrottleConfig{
		RequestsPerMinute: parseIntOrDefault("AUTH_THROTTLE_RPM", defaultThrottleRPM),
		Burst:             parseIntOrDefault("AUTH_THROTTLE_BURST", defaultThrottleBurst),
	}
}

func GetSecurityWebhookURL() string {
	return os.Getenv("SECURITY_WEBHOOK_URL")
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Invalid value in %s: %s, using default %d", varName, v, def)
	}
	return def
}
