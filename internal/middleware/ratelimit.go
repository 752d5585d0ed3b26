package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserRateLimiter keeps one token bucket per username. It backs the
// cashier lookup endpoint, which clients call as the cashier types.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	entryTTL time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewUserRateLimiter(rps float64, burst int) *UserRateLimiter {
	return &UserRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		entryTTL: 10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *UserRateLimiter) limiter(username string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if e, ok := rl.limiters[username]; ok {
		e.lastSeen = now
		return e.limiter
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[username] = &limiterEntry{limiter: l, lastSeen: now}
	return l
}

// Cleanup drops buckets idle for longer than the entry TTL.
func (rl *UserRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.entryTTL)
	for name, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, name)
		}
	}
}

// CleanupLoop runs Cleanup every interval until ctx is done.
func (rl *UserRateLimiter) CleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Len is the number of tracked users.
func (rl *UserRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware limits authenticated requests per user; requests without
// claims pass through.
func (rl *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.limiter(claims.Username).Allow() {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
