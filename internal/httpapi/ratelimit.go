package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/wirechat/wirechat/internal/auth"
)

// Per-user token bucket rate limiting. Buckets refill continuously, so
// clients get burst headroom without a thundering herd at window
// boundaries. In-memory only; a multi-node deployment fronted by one
// gateway gets per-node limits.

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// allow consumes one token if available, returning the wait until the next
// token otherwise.
func (tb *tokenBucket) allow() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, 0
	}
	wait := time.Duration((1.0 - tb.tokens) / tb.refillRate * float64(time.Second))
	return false, wait
}

// RateLimiter manages per-user token buckets.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[int64]*tokenBucket

	burst      int
	refillRate float64
}

// NewRateLimiter allows maxRequests per window with burst headroom.
func NewRateLimiter(maxRequests int, window time.Duration, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[int64]*tokenBucket),
		burst:      burst,
		refillRate: float64(maxRequests) / window.Seconds(),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) bucket(userID int64) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[userID]
	if !ok {
		b = newTokenBucket(rl.burst, rl.refillRate)
		rl.buckets[userID] = b
	}
	return b
}

// Allow reports whether the user may make a request now.
func (rl *RateLimiter) Allow(userID int64) (bool, time.Duration) {
	return rl.bucket(userID).allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for userID, b := range rl.buckets {
			b.mu.Lock()
			idle := time.Since(b.lastRefill) > time.Hour
			b.mu.Unlock()
			if idle {
				delete(rl.buckets, userID)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware enforces the limit for authenticated requests.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID != 0 {
			ok, wait := rl.Allow(userID)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
