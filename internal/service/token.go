package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

var (
	// ErrTokenInvalid is the single failure result for verification.
	// Expired, malformed, mis-signed and wrong-issuer tokens all
	// collapse into it so callers cannot tell which check failed.
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrInvalidUserID = errors.New("invalid userID")
)

const bearerScheme = "Bearer"

// AccessClaims is the full identity claim set carried by access tokens.
type AccessClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims deliberately carries less identity than AccessClaims:
// an intercepted refresh token leaks no email or role.
type RefreshClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionTokenService mints and validates the bearer token pair. Access
// and refresh tokens are signed under distinct secrets, so neither can
// be forged from knowledge of the other's key and neither passes the
// other's verifier.
type SessionTokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	blacklist     storage.TokenBlacklist
	now           func() time.Time
}

func NewSessionTokenService(cfg *util.TokenConfig, blacklist storage.TokenBlacklist) *SessionTokenService {
	return &SessionTokenService{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		blacklist:     blacklist,
		now:           time.Now,
	}
}

func (ts *SessionTokenService) AccessTTL() time.Duration  { return ts.accessTTL }
func (ts *SessionTokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

// GenerateAccessToken signs an HS512 access token for the user with a
// fresh JTI and the configured issuer/audience.
func (ts *SessionTokenService) GenerateAccessToken(user *models.User, sessionID string) (string, error) {
	now := ts.now()
	claims := &AccessClaims{
		UserID:           strconv.FormatInt(user.ID, 10),
		Email:            user.Email,
		Role:             user.Role,
		SessionID:        sessionID,
		RegisteredClaims: ts.registeredClaims(user.ID, now, ts.accessTTL),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.accessSecret)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}

	return signedToken, nil
}

func (ts *SessionTokenService) GenerateRefreshToken(userID int64, sessionID string) (string, error) {
	now := ts.now()
	claims := &RefreshClaims{
		UserID:           strconv.FormatInt(userID, 10),
		SessionID:        sessionID,
		RegisteredClaims: ts.registeredClaims(userID, now, ts.refreshTTL),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}

	return signedToken, nil
}

func (ts *SessionTokenService) registeredClaims(userID int64, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    ts.issuer,
		Audience:  jwt.ClaimStrings{ts.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (ts *SessionTokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parse(token, claims, ts.accessSecret); err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (ts *SessionTokenService) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parse(token, claims, ts.refreshSecret); err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (ts *SessionTokenService) parse(token string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(ts.audience),
		jwt.WithLeeway(util.JWTLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}

	parsedToken, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		opts...,
	)
	if err != nil {
		return fmt.Errorf("parse token claims: %w", err)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// Revoke adds the raw token string to the blacklist. The entry's TTL is
// the token's remaining lifetime when it can be read; unreadable tokens
// are blacklisted for the full refresh TTL as a conservative bound.
func (ts *SessionTokenService) Revoke(ctx context.Context, token string) error {
	ttl := ts.refreshTTL
	if exp, err := ts.expiryFromToken(token); err == nil {
		if remaining := exp.Sub(ts.now()); remaining > 0 {
			ttl = remaining
		}
	}

	if err := ts.blacklist.Revoke(ctx, token, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked is a pure membership check against the blacklist. It runs
// before signature validation in the middleware.
func (ts *SessionTokenService) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := ts.blacklist.IsRevoked(ctx, token)
	if err != nil {
		return false, fmt.Errorf("is token revoked: %w", err)
	}
	return revoked, nil
}

// expiryFromToken reads exp without verifying the signature. Revocation
// only needs the claim for a TTL bound, not trust in it.
func (ts *SessionTokenService) expiryFromToken(token string) (time.Time, error) {
	parsedToken, _, err := new(jwt.Parser).ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse unverified: %w", err)
	}
	claims, ok := parsedToken.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, errors.New("no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}

// ExtractBearerToken parses an Authorization header value. It returns
// false when the header is absent or uses a different scheme; no
// verification happens here.
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
