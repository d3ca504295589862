package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedMarker = "revoked"

// TokenBlacklist stores revoked token strings in Redis so revocation is
// visible to every instance. Entries carry a TTL equal to the remaining
// token lifetime; once the token would have expired anyway the entry is
// dropped by Redis.
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func (s *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, blacklistKey(token), revokedMarker, ttl).Err()
}

func (s *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	result, err := s.client.Get(ctx, blacklistKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return result == revokedMarker, nil
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}
