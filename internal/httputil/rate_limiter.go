package httputil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter holds one token bucket per key (API key id, client IP) and
// forgets buckets that have been idle for longer than maxIdle.
type KeyedRateLimiter[K comparable] struct {
	limiters sync.Map // map[K]*limiterEntry
	rps      float64
	burst    int
	maxIdle  time.Duration
}

// limiterEntry holds a rate limiter and last access time for cleanup.
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// NewKeyedRateLimiter creates a KeyedRateLimiter allowing rps requests per second
// per key with the given burst.
func NewKeyedRateLimiter[K comparable](rps float64, burst int) *KeyedRateLimiter[K] {
	return &KeyedRateLimiter[K]{
		rps:     rps,
		burst:   burst,
		maxIdle: time.Hour,
	}
}

// Allow reports whether a request for key may proceed. When it may not, the
// returned duration is how long the caller should wait before retrying.
func (k *KeyedRateLimiter[K]) Allow(key K) (bool, time.Duration) {
	limiter := k.getLimiter(key)
	if limiter.Allow() {
		return true, 0
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}

// getLimiter retrieves or creates the rate limiter for key.
func (k *KeyedRateLimiter[K]) getLimiter(key K) *rate.Limiter {
	now := time.Now()
	if val, ok := k.limiters.Load(key); ok {
		entry := val.(*limiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &limiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(k.rps), k.burst),
		lastAccess: now,
	}
	actual, _ := k.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter[K]) Len() int {
	count := 0
	k.limiters.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Cleanup removes buckets idle since before now minus maxIdle.
func (k *KeyedRateLimiter[K]) Cleanup(now time.Time) {
	threshold := now.Add(-k.maxIdle)
	k.limiters.Range(func(key, value any) bool {
		entry := value.(*limiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if stale {
			k.limiters.Delete(key)
		}
		return true
	})
}

// RunCleanup calls Cleanup every interval until ctx is cancelled.
func (k *KeyedRateLimiter[K]) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			k.Cleanup(now)
		}
	}
}
