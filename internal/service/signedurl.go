package service

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

var ErrEmptyIdentifier = errors.New("resource and subject identifiers must be non-empty")

// SignedURLService mints and verifies time-boxed playback URLs. The
// scheme is stateless: verification recomputes the signature from the
// request's own fields, so no lookup of issued URLs ever happens.
type SignedURLService struct {
	signer     hmacSigner
	defaultTTL time.Duration
	now        func() time.Time
}

func NewSignedURLService(cfg *util.SigningConfig) (*SignedURLService, error) {
	signer, err := newHMACSigner(cfg.URLSecret)
	if err != nil {
		return nil, fmt.Errorf("signed url service: %w", err)
	}
	return &SignedURLService{
		signer:     signer,
		defaultTTL: cfg.SignedURLTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a playback URL for videoID on behalf of userID. A ttl of
// zero or less falls back to the configured default.
func (s *SignedURLService) Issue(videoID, userID string, ttl time.Duration) (string, int64, error) {
	if videoID == "" || userID == "" {
		return "", 0, ErrEmptyIdentifier
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	expiresAt := s.now().Add(ttl).UnixMilli()
	signature := s.signer.sign(canonicalPlaybackPayload(videoID, userID, expiresAt))

	q := url.Values{}
	q.Set("userId", userID)
	q.Set("expires", fmt.Sprintf("%d", expiresAt))
	q.Set("signature", signature)

	return fmt.Sprintf("/api/videos/%s/stream?%s", url.PathEscape(videoID), q.Encode()), expiresAt, nil
}

// Verify reports whether the supplied fields form a currently valid
// playback grant. Expiry is checked first, before the secret is
// touched; expiresAt is milliseconds since epoch with no grace period.
// Every failure mode collapses to false.
func (s *SignedURLService) Verify(videoID, userID string, expiresAt int64, signature string) bool {
	if videoID == "" || userID == "" || signature == "" {
		return false
	}
	if s.now().UnixMilli() > expiresAt {
		return false
	}
	return s.signer.matches(canonicalPlaybackPayload(videoID, userID, expiresAt), signature)
}

func canonicalPlaybackPayload(videoID, userID string, expiresAt int64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", videoID, userID, expiresAt))
}
