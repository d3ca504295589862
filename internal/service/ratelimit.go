package service

import (
	"sync"
	"time"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

type attempt struct {
	count       int
	lastAttempt time.Time
}

// AttemptLimiter throttles token generation per identifier. The window
// is measured from the last allowed attempt, not a fixed or sliding
// window: a burst straddling the reset boundary can exceed the nominal
// rate. That approximation is deliberate and kept as-is.
//
// State is process-local. A single mutex serializes the
// read-modify-write on each entry; that trades a little contention for
// an exact count under concurrent callers.
type AttemptLimiter struct {
	mu       sync.Mutex
	attempts map[string]attempt
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewAttemptLimiter(cfg *util.RateLimiterConfig) *AttemptLimiter {
	return &AttemptLimiter{
		attempts: make(map[string]attempt),
		limit:    cfg.Limit,
		window:   cfg.Window,
		now:      time.Now,
	}
}

// Allow records an attempt for identifier and reports whether it is
// permitted. When denied, retryAfter is the time until the window
// reopens; a denied attempt does not mutate the counter.
func (l *AttemptLimiter) Allow(identifier string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok := l.attempts[identifier]
	if !ok || now.Sub(entry.lastAttempt) > l.window {
		l.attempts[identifier] = attempt{count: 1, lastAttempt: now}
		return true, 0
	}

	if entry.count >= l.limit {
		return false, entry.lastAttempt.Add(l.window).Sub(now)
	}

	entry.count++
	entry.lastAttempt = now
	l.attempts[identifier] = entry
	return true, 0
}
