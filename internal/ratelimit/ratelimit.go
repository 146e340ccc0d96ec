// Package ratelimit provides a keyed token bucket limiter. Idle keys are
// evicted after a TTL so the table stays bounded under many client IPs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

const DefaultIdleTTL = 10 * time.Minute

type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters *ttlcache.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	stopOnce sync.Once
}

// New creates a limiter allowing rps requests per second per key with the
// given burst. Keys unused for idleTTL are forgotten.
func New(rps float64, burst int, idleTTL time.Duration) *KeyedRateLimiter {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	cache := ttlcache.New(ttlcache.WithTTL[string, *rate.Limiter](idleTTL))
	go cache.Start()

	return &KeyedRateLimiter{
		limiters: cache,
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.getLimiter(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	return krl.limiters.Len()
}

func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	// Get refreshes the TTL of a hit.
	if item := krl.limiters.Get(key); item != nil {
		return item.Value()
	}
	limiter := rate.NewLimiter(krl.limit, krl.burst)
	krl.limiters.Set(key, limiter, ttlcache.DefaultTTL)
	return limiter
}

// Stop ends the eviction loop.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(krl.limiters.Stop)
}
