// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with per-caller
// buckets (golang.org/x/time/rate) and opportunistic eviction of idle
// buckets. It is process-local; a horizontally scaled deployment needs a
// shared limiter in front of it.
//
// Rejected requests get the canonical 429 error object:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{ "error": "Too many requests were made", "retry_after": 1 }
package middleware

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-route-errors/internal/apierror"
)

const (
	visitorTTL       = 10 * time.Minute
	cleanupThreshold = 5000
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by caller: the "userID" context value, then the
// X-User-ID header, then the client IP. Keys are prefixed so the namespaces
// never collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		if s := strings.TrimSpace(c.GetHeader("X-User-ID")); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter returns a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
	}
}

// getVisitor returns the limiter for key, creating it if absent. Idle
// buckets are evicted every cleanupThreshold lookups, before the requested
// one is touched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= cleanupThreshold {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// retryAfter is the payload of a rate-limit rejection.
type retryAfter struct {
	Seconds int `json:"retry_after"`
}

// Handler returns the Gin middleware enforcing the limits.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		wait := 1
		if rl.rps > 0 {
			wait = int(math.Ceil(1 / float64(rl.rps)))
		}
		e := apierror.Attach(apierror.TooManyRequests(), retryAfter{Seconds: wait})
		status, body, _ := e.Render()
		ObserveError(status, string(e.Kind()))

		c.Header("Retry-After", strconv.Itoa(wait))
		c.Header("Cache-Control", "no-store")
		c.AbortWithStatusJSON(status, body)
	}
}
