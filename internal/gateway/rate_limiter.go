package gateway

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements per-user rate limiting using the token bucket algorithm
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	bucketsMux sync.RWMutex
	rate       float64 // tokens per second
	burst      float64
	now        func() time.Time
}

// tokenBucket represents a token bucket for rate limiting
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter creates a limiter that admits limit requests per period with
// bursts of up to burst. A burst below one uses limit.
func NewRateLimiter(limit int, period time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = limit
	}
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    float64(limit) / period.Seconds(),
		burst:   float64(burst),
		now:     time.Now,
	}
}

// Allow checks if a request is allowed for the given user
func (rl *RateLimiter) Allow(userID string) bool {
	bucket := rl.getBucket(userID)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	now := rl.now()
	elapsed := now.Sub(bucket.lastRefill).Seconds()
	if elapsed > 0 {
		bucket.tokens = min(bucket.tokens+elapsed*rl.rate, rl.burst)
		bucket.lastRefill = now
	}

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// Reset refills the bucket of a user
func (rl *RateLimiter) Reset(userID string) {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[userID]
	rl.bucketsMux.RUnlock()

	if exists {
		bucket.mutex.Lock()
		bucket.tokens = rl.burst
		bucket.lastRefill = rl.now()
		bucket.mutex.Unlock()
	}
}

// Remaining returns the whole tokens left for a user and the burst size
func (rl *RateLimiter) Remaining(userID string) (int, int) {
	bucket := rl.getBucket(userID)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	return int(bucket.tokens), int(rl.burst)
}

// getBucket gets or creates a token bucket for a user
func (rl *RateLimiter) getBucket(userID string) *tokenBucket {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[userID]
	rl.bucketsMux.RUnlock()

	if exists {
		return bucket
	}

	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[userID]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		tokens:     rl.burst,
		lastRefill: rl.now(),
	}
	rl.buckets[userID] = bucket

	return bucket
}

// cleanup removes buckets idle for longer than maxIdle
func (rl *RateLimiter) cleanup(maxIdle time.Duration) int {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0

	for userID, bucket := range rl.buckets {
		bucket.mutex.Lock()
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.buckets, userID)
			removed++
		}
		bucket.mutex.Unlock()
	}
	return removed
}

// StartCleanup drops idle buckets every interval until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(interval)
			}
		}
	}()
}
