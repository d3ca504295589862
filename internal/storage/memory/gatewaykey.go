package memory

import (
	"context"
	"sync"
	"time"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

// GatewayKeyStore holds the hashed gateway key material in process
// memory. The previous hash is kept without a TTL; the caller enforces
// the rotation grace window from RotatedAt.
type GatewayKeyStore struct {
	mu       sync.RWMutex
	material storage.GatewayKeyMaterial
}

func NewGatewayKeyStore() *GatewayKeyStore {
	return &GatewayKeyStore{}
}

var _ storage.GatewayKeyStore = (*GatewayKeyStore)(nil)

func (s *GatewayKeyStore) Material(_ context.Context) (*storage.GatewayKeyMaterial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.material
	return &m, nil
}

func (s *GatewayKeyStore) Install(_ context.Context, currentHash string, rotatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.material = storage.GatewayKeyMaterial{
		CurrentHash: currentHash,
		RotatedAt:   rotatedAt,
	}
	return nil
}

func (s *GatewayKeyStore) Rotate(_ context.Context, newHash, previousHash string, rotatedAt time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.material = storage.GatewayKeyMaterial{
		CurrentHash:  newHash,
		PreviousHash: previousHash,
		RotatedAt:    rotatedAt,
	}
	return nil
}
