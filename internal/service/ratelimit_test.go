package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

func testLimiter(limit int, window time.Duration) *AttemptLimiter {
	return NewAttemptLimiter(&util.RateLimiterConfig{Limit: limit, Window: window})
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := testLimiter(10, time.Hour)

	for i := 0; i < 10; i++ {
		allowed, retryAfter := l.Allow("u1@x.com|10.0.0.1")
		require.True(t, allowed, "attempt %d", i+1)
		require.Zero(t, retryAfter)
	}

	allowed, retryAfter := l.Allow("u1@x.com|10.0.0.1")
	require.False(t, allowed)
	require.Greater(t, retryAfter, time.Duration(0))
	require.LessOrEqual(t, retryAfter, time.Hour)
}

func TestLimiterWindowReset(t *testing.T) {
	l := testLimiter(3, time.Hour)
	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("k")
		require.True(t, allowed)
	}
	allowed, _ := l.Allow("k")
	require.False(t, allowed)

	// Exactly one window after the last allowed attempt is still inside
	// the window; one instant past it reopens.
	l.now = func() time.Time { return base.Add(time.Hour) }
	allowed, _ = l.Allow("k")
	require.False(t, allowed)

	l.now = func() time.Time { return base.Add(time.Hour + time.Nanosecond) }
	allowed, _ = l.Allow("k")
	require.True(t, allowed)

	// The reset starts a fresh budget.
	for i := 0; i < 2; i++ {
		allowed, _ = l.Allow("k")
		require.True(t, allowed)
	}
	allowed, _ = l.Allow("k")
	require.False(t, allowed)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := testLimiter(1, time.Hour)

	allowed, _ := l.Allow("a")
	require.True(t, allowed)
	allowed, _ = l.Allow("a")
	require.False(t, allowed)

	allowed, _ = l.Allow("b")
	require.True(t, allowed)
}

func TestLimiterDenialDoesNotExtendWindow(t *testing.T) {
	l := testLimiter(1, time.Hour)
	base := time.Now()
	l.now = func() time.Time { return base }

	allowed, _ := l.Allow("k")
	require.True(t, allowed)

	// Hammering a denied key must not push the reset further out.
	l.now = func() time.Time { return base.Add(59 * time.Minute) }
	allowed, retryAfter := l.Allow("k")
	require.False(t, allowed)
	require.Equal(t, time.Minute, retryAfter)

	l.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	allowed, _ = l.Allow("k")
	require.True(t, allowed)
}
