package memory

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist is the process-local revocation set. Entries live for
// the lifetime of the process and are never swept; the ttl argument is
// accepted for interface compatibility with the shared-store
// implementation. A restart clears all revocations.
type TokenBlacklist struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{
		revoked: make(map[string]struct{}),
	}
}

func (b *TokenBlacklist) Revoke(_ context.Context, token string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.revoked[token] = struct{}{}
	return nil
}

func (b *TokenBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.revoked[token]
	return ok, nil
}
