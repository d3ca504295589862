package service

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCapabilityRoundTrip(t *testing.T) {
	svc, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	token, expiresAt, err := svc.Mint("vid-42", "user-7", []string{"view", "download"}, time.Minute)
	require.NoError(t, err)
	require.Greater(t, expiresAt, time.Now().UnixMilli())

	cap, ok := svc.Verify(token)
	require.True(t, ok)
	require.Equal(t, "vid-42", cap.ResourceID)
	require.Equal(t, "user-7", cap.SubjectID)
	require.Equal(t, []string{"view", "download"}, cap.Permissions)
	require.Equal(t, expiresAt, cap.Expiration)

	require.True(t, cap.HasPermission("view"))
	require.False(t, cap.HasPermission("admin"))
}

func TestCapabilityNilPermissions(t *testing.T) {
	svc, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	token, _, err := svc.Mint("vid-42", "user-7", nil, time.Minute)
	require.NoError(t, err)

	cap, ok := svc.Verify(token)
	require.True(t, ok)
	require.Empty(t, cap.Permissions)
}

func TestCapabilityMalformedTokens(t *testing.T) {
	svc, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	cases := map[string]string{
		"empty":             "",
		"no delimiter":      "justonepart",
		"empty payload":     ".deadbeef",
		"empty signature":   "eyJhIjoxfQ.",
		"bad base64":        "!!!notbase64!!!.deadbeef",
		"bad hex signature": base64.RawURLEncoding.EncodeToString([]byte(`{"a":1}`)) + ".zzzz",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			cap, ok := svc.Verify(token)
			require.False(t, ok)
			require.Nil(t, cap)
		})
	}
}

func TestCapabilityForgedPayloadRejected(t *testing.T) {
	svc, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	token, _, err := svc.Mint("vid-42", "user-7", []string{"view"}, time.Minute)
	require.NoError(t, err)

	// Swap the payload for a validly signed token's signature.
	_, signature, found := strings.Cut(token, ".")
	require.True(t, found)

	forged := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"resource_id":"vid-42","subject_id":"user-7","permissions":["admin"],"expiration":99999999999999}`),
	) + "." + signature

	cap, ok := svc.Verify(forged)
	require.False(t, ok)
	require.Nil(t, cap)
}

func TestCapabilityExpiry(t *testing.T) {
	svc, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	base := time.Now()
	svc.now = func() time.Time { return base }

	token, _, err := svc.Mint("vid-42", "user-7", []string{"view"}, time.Second)
	require.NoError(t, err)

	_, ok := svc.Verify(token)
	require.True(t, ok)

	svc.now = func() time.Time { return base.Add(1001 * time.Millisecond) }
	cap, ok := svc.Verify(token)
	require.False(t, ok)
	require.Nil(t, cap)
}

func TestCapabilitySecretIsolation(t *testing.T) {
	svcA, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	cfgB := testSigningConfig()
	cfgB.CapabilitySecret = []byte("a-different-secret")
	svcB, err := NewCapabilityService(cfgB)
	require.NoError(t, err)

	token, _, err := svcA.Mint("vid-42", "user-7", []string{"view"}, time.Minute)
	require.NoError(t, err)

	_, ok := svcA.Verify(token)
	require.True(t, ok)
	_, ok = svcB.Verify(token)
	require.False(t, ok)
}

func TestCapabilityMissingSecret(t *testing.T) {
	cfg := testSigningConfig()
	cfg.CapabilitySecret = nil

	_, err := NewCapabilityService(cfg)
	require.ErrorIs(t, err, ErrSigningSecretMissing)
}

func TestCapabilityEmptyIdentifiers(t *testing.T) {
	svc, err := NewCapabilityService(testSigningConfig())
	require.NoError(t, err)

	_, _, err = svc.Mint("", "user-7", nil, time.Minute)
	require.ErrorIs(t, err, ErrEmptyIdentifier)

	_, _, err = svc.Mint("vid-42", "", nil, time.Minute)
	require.ErrorIs(t, err, ErrEmptyIdentifier)
}
