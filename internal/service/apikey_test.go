package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage/memory"
)

func newAPIKeyService() *APIKeyService {
	return NewAPIKeyService(memory.NewGatewayKeyStore(), zap.NewNop().Sugar())
}

func TestSyncAPIKeyRequiresConfiguration(t *testing.T) {
	t.Setenv("GATEWAY_API_KEY", "")

	svc := newAPIKeyService()
	require.Error(t, svc.SyncAPIKey(context.Background()))
}

func TestSyncAPIKeyFirstInstall(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GATEWAY_API_KEY", "gw-key-one")

	svc := newAPIKeyService()
	require.NoError(t, svc.SyncAPIKey(ctx))

	valid, err := svc.IsValidAPIKey(ctx, "gw-key-one")
	require.NoError(t, err)
	require.True(t, valid)

	for _, key := range []string{"", "gw-key-two", "gw-key-one ", "GW-KEY-ONE"} {
		valid, err = svc.IsValidAPIKey(ctx, key)
		require.NoError(t, err)
		require.False(t, valid, "key %q", key)
	}
}

func TestSyncAPIKeyUnchangedKeepsNoPrevious(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GATEWAY_API_KEY", "gw-key-one")

	svc := newAPIKeyService()
	require.NoError(t, svc.SyncAPIKey(ctx))
	require.NoError(t, svc.SyncAPIKey(ctx))

	valid, err := svc.IsValidAPIKey(ctx, "gw-key-one")
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = svc.IsValidAPIKey(ctx, "gw-key-two")
	require.NoError(t, err)
	require.False(t, valid)
}

func TestAPIKeyRotationGraceWindow(t *testing.T) {
	ctx := context.Background()
	svc := newAPIKeyService()
	base := time.Now()
	svc.now = func() time.Time { return base }

	t.Setenv("GATEWAY_API_KEY", "gw-key-one")
	require.NoError(t, svc.SyncAPIKey(ctx))

	t.Setenv("GATEWAY_API_KEY", "gw-key-two")
	require.NoError(t, svc.SyncAPIKey(ctx))

	// Both keys work right after the rotation.
	for _, key := range []string{"gw-key-one", "gw-key-two"} {
		valid, err := svc.IsValidAPIKey(ctx, key)
		require.NoError(t, err)
		require.True(t, valid, "key %q", key)
	}

	// The old key survives up to exactly the grace period.
	svc.now = func() time.Time { return base.Add(24 * time.Hour) }
	valid, err := svc.IsValidAPIKey(ctx, "gw-key-one")
	require.NoError(t, err)
	require.True(t, valid)

	// One instant past it only the new key remains.
	svc.now = func() time.Time { return base.Add(24*time.Hour + time.Second) }
	valid, err = svc.IsValidAPIKey(ctx, "gw-key-one")
	require.NoError(t, err)
	require.False(t, valid)

	valid, err = svc.IsValidAPIKey(ctx, "gw-key-two")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestAPIKeyDoubleRotationDropsOldest(t *testing.T) {
	ctx := context.Background()
	svc := newAPIKeyService()

	t.Setenv("GATEWAY_API_KEY", "gw-key-one")
	require.NoError(t, svc.SyncAPIKey(ctx))
	t.Setenv("GATEWAY_API_KEY", "gw-key-two")
	require.NoError(t, svc.SyncAPIKey(ctx))
	t.Setenv("GATEWAY_API_KEY", "gw-key-three")
	require.NoError(t, svc.SyncAPIKey(ctx))

	// Only one generation of previous key is honored.
	valid, err := svc.IsValidAPIKey(ctx, "gw-key-one")
	require.NoError(t, err)
	require.False(t, valid)

	for _, key := range []string{"gw-key-two", "gw-key-three"} {
		valid, err = svc.IsValidAPIKey(ctx, key)
		require.NoError(t, err)
		require.True(t, valid, "key %q", key)
	}
}
