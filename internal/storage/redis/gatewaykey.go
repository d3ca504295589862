package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

const (
	currentGatewayKey   = "gateway:key:current"
	previousGatewayKey  = "gateway:key:previous"
	gatewayKeyRotatedAt = "gateway:key:rotated_at"
)

// GatewayKeyStore keeps the hashed gateway key material in Redis so a
// rotation performed by one instance is picked up by all of them.
type GatewayKeyStore struct {
	client *redis.Client
}

func NewGatewayKeyStore(client *redis.Client) *GatewayKeyStore {
	return &GatewayKeyStore{client: client}
}

var _ storage.GatewayKeyStore = (*GatewayKeyStore)(nil)

func (s *GatewayKeyStore) Material(ctx context.Context) (*storage.GatewayKeyMaterial, error) {
	current, err := s.client.Get(ctx, currentGatewayKey).Result()
	if err == redis.Nil {
		return &storage.GatewayKeyMaterial{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current gateway key: %w", err)
	}

	previous, err := s.client.Get(ctx, previousGatewayKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get previous gateway key: %w", err)
	}

	var rotatedAt time.Time
	rotatedAtStr, err := s.client.Get(ctx, gatewayKeyRotatedAt).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get gateway key rotation time: %w", err)
	}
	if err == nil {
		rotatedAt, err = time.Parse(time.RFC3339, rotatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parse gateway key rotation time: %w", err)
		}
	}

	return &storage.GatewayKeyMaterial{
		CurrentHash:  current,
		PreviousHash: previous,
		RotatedAt:    rotatedAt,
	}, nil
}

func (s *GatewayKeyStore) Install(ctx context.Context, currentHash string, rotatedAt time.Time) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, currentGatewayKey, currentHash, 0)
	pipe.Set(ctx, gatewayKeyRotatedAt, rotatedAt.UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("install gateway key: %w", err)
	}
	return nil
}

func (s *GatewayKeyStore) Rotate(ctx context.Context, newHash, previousHash string, rotatedAt time.Time, grace time.Duration) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, previousGatewayKey, previousHash, grace)
	pipe.Set(ctx, currentGatewayKey, newHash, 0)
	pipe.Set(ctx, gatewayKeyRotatedAt, rotatedAt.UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rotate gateway key: %w", err)
	}
	return nil
}
