package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

const gatewayKeyGracePeriod = 24 * time.Hour

// APIKeyService validates the shared key the website backend presents
// on the internal issuance endpoints. Only SHA-256 hashes of the key
// are stored; after a rotation the previous key stays valid for a 24h
// grace period so both sides never have to switch in lockstep.
type APIKeyService struct {
	store storage.GatewayKeyStore
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewAPIKeyService(store storage.GatewayKeyStore, log *zap.SugaredLogger) *APIKeyService {
	return &APIKeyService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// SyncAPIKey pushes the configured GATEWAY_API_KEY into the key store
// at startup, rotating the stored key when the environment changed.
func (s *APIKeyService) SyncAPIKey(ctx context.Context) error {
	configured := os.Getenv("GATEWAY_API_KEY")
	if configured == "" {
		return fmt.Errorf("GATEWAY_API_KEY is empty during sync attempt")
	}
	configuredHash := hashAPIKey(configured)

	material, err := s.store.Material(ctx)
	if err != nil {
		return fmt.Errorf("load gateway key material: %w", err)
	}

	switch {
	case material.CurrentHash == "":
		if err := s.store.Install(ctx, configuredHash, s.now()); err != nil {
			return fmt.Errorf("install gateway key: %w", err)
		}
		s.log.Info("Gateway API key initialized.")
	case constantTimeEqualHex(configuredHash, material.CurrentHash):
		s.log.Info("Skipping gateway key sync: key unchanged.")
	default:
		if err := s.store.Rotate(ctx, configuredHash, material.CurrentHash, s.now(), gatewayKeyGracePeriod); err != nil {
			return fmt.Errorf("rotate gateway key: %w", err)
		}
		s.log.Info("Gateway API key rotated.")
	}

	return nil
}

// IsValidAPIKey accepts the current key, or the previous one while the
// rotation grace period lasts.
func (s *APIKeyService) IsValidAPIKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	keyHash := hashAPIKey(key)

	material, err := s.store.Material(ctx)
	if err != nil {
		return false, fmt.Errorf("load gateway key material: %w", err)
	}

	if material.CurrentHash != "" && constantTimeEqualHex(keyHash, material.CurrentHash) {
		return true, nil
	}
	if material.PreviousHash == "" || !constantTimeEqualHex(keyHash, material.PreviousHash) {
		return false, nil
	}

	return s.now().Sub(material.RotatedAt) <= gatewayKeyGracePeriod, nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func constantTimeEqualHex(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
