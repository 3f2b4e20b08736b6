package httputil

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between requests to the same domain.
// It is shared by all in-flight validations; per-domain timestamps are
// guarded so concurrent sessions cannot bypass the delay.
type RateLimiter struct {
	mu       sync.Mutex
	delay    time.Duration
	lastSeen map[string]time.Time
}

func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		delay:    delay,
		lastSeen: make(map[string]time.Time),
	}
}

// Wait blocks until the domain's minimum inter-request delay has elapsed, or
// the context is cancelled. The reservation is taken under the lock so two
// concurrent callers for the same domain queue behind each other.
func (r *RateLimiter) Wait(ctx context.Context, domain string) error {
	r.mu.Lock()
	now := time.Now()
	next := now
	if last, ok := r.lastSeen[domain]; ok {
		if until := last.Add(r.delay); until.After(now) {
			next = until
		}
	}
	r.lastSeen[domain] = next
	r.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
