package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"solidity-audit-bot/interfaces/http/response"
)

// RateLimiter is an in-memory per-caller sliding window of request
// timestamps, pruned lazily on each check. It is neither durable nor
// distributed and resets on process restart.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow records a request for the caller and reports whether it is within
// the window limit. Timestamps older than the window are dropped first.
func (l *RateLimiter) Allow(caller string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.requests[caller][:0]
	for _, t := range l.requests[caller] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.requests[caller] = kept

	if len(kept) >= l.limit {
		return false
	}

	l.requests[caller] = append(kept, now)
	return true
}

// Handler returns the Gin middleware keyed on client IP.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP(), time.Now()) {
			response.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
