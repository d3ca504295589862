package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// RateLimitError reports a denied token-generation attempt together
// with the retry-after hint the HTTP layer surfaces.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string { return "too many token requests" }

// AuthService orchestrates the login/refresh/logout flows around the
// stateless token services: credential checks, the token-generation
// rate limit, session audit rows and revocation.
type AuthService struct {
	tokens  *SessionTokenService
	limiter *AttemptLimiter
	storage storage.Storage
	webhook *WebhookService
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewAuthService(
	tokens *SessionTokenService,
	limiter *AttemptLimiter,
	storage storage.Storage,
	webhook *WebhookService,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		tokens:  tokens,
		limiter: limiter,
		storage: storage,
		webhook: webhook,
		log:     log,
		now:     time.Now,
	}
}

// Login verifies credentials and mints a fresh token pair under a new
// session ID. Both a bad email and a bad password collapse to
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta models.ClientMetadata) (*models.TokenPairResponse, error) {
	identifier := email + "|" + meta.IPAddress
	if allowed, retryAfter := s.limiter.Allow(identifier); !allowed {
		s.log.Warnw("token generation rate limited", "email", email, "ip", meta.IPAddress)
		s.webhook.NotifySecurityEvent(EventRateLimited, map[string]interface{}{
			"identifier": identifier,
		})
		return nil, RateLimitError{RetryAfter: retryAfter}
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	sessionID := uuid.NewString()

	accessToken, err := s.tokens.GenerateAccessToken(user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	err = s.storage.RecordLogin(ctx, models.Session{
		SessionID: sessionID,
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		ClientIP:  meta.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	s.log.Infow("login", "userID", user.ID, "sessionID", sessionID)

	return &models.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh mints a new access token from a valid, unrevoked refresh
// token, keeping the session ID so the pair stays correlated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	revoked, err := s.tokens.IsRevoked(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return "", ErrInvalidUserID
	}

	// Re-read the user so a role or email change lands in the next
	// access token instead of surviving for the whole refresh TTL.
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", ErrTokenInvalid
		}
		return "", fmt.Errorf("get user by id: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user, claims.SessionID)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	return accessToken, nil
}

// Logout blacklists both presented tokens and removes the session audit
// row. Blacklisting happens regardless of whether the refresh token
// still verifies, so a half-expired pair is still fully revoked.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if err := s.tokens.Revoke(ctx, accessToken); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if refreshToken != "" {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}

	if claims, err := s.tokens.VerifyRefreshToken(refreshToken); err == nil {
		if err := s.storage.DeleteSession(ctx, claims.SessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}

	return nil
}

// LogoutAll drops every session audit row for the user. Unexpired
// tokens from other devices stay cryptographically valid until their
// own expiry unless individually blacklisted; the event is reported so
// monitoring can follow up.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.storage.DeleteAllUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("delete all user sessions: %w", err)
	}

	s.webhook.NotifySecurityEvent(EventSessionsRevoked, map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
