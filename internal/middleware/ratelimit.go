package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/projecty/backend/internal/errors"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/util"
)

// RateLimitConfig bounds requests per key
type RateLimitConfig struct {
	// Name prefixes Redis keys and labels metrics
	Name   string
	Limit  int
	Window time.Duration
}

func DefaultRateLimitConfig(perMinute int) RateLimitConfig {
	if perMinute <= 0 {
		perMinute = 120
	}
	return RateLimitConfig{Name: "api", Limit: perMinute, Window: time.Minute}
}

// AuthRateLimitConfig is stricter, for register and login
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "auth", Limit: 10, Window: time.Minute}
}

// TokenBucket refills continuously at refillRate tokens per second
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RetryAfter returns whole seconds until the next token
func (tb *TokenBucket) RetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		return int((1-tb.tokens)/tb.refillRate) + 1
	}
	return 0
}

func (tb *TokenBucket) idleSince(t time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill.Before(t)
}

// MemoryRateLimiter keeps one token bucket per key in process memory. The
// server uses it when Redis is not configured.
type MemoryRateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.Mutex
}

func NewMemoryRateLimiter(config RateLimitConfig) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
}

func (rl *MemoryRateLimiter) bucket(key string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		refill := float64(rl.config.Limit) / rl.config.Window.Seconds()
		b = NewTokenBucket(float64(rl.config.Limit), refill)
		rl.buckets[key] = b
	}
	return b
}

// Allow takes a token for key
func (rl *MemoryRateLimiter) Allow(key string) (bool, int) {
	b := rl.bucket(key)
	if b.Allow() {
		return true, 0
	}
	return false, b.RetryAfter()
}

// Prune drops buckets untouched for a full window
func (rl *MemoryRateLimiter) Prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.config.Window)
	pruned := 0
	for key, b := range rl.buckets {
		if b.idleSince(cutoff) {
			delete(rl.buckets, key)
			pruned++
		}
	}
	return pruned
}

// Middleware enforces the limiter
func (rl *MemoryRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.Allow(rateLimitKey(c))
		if !ok {
			metrics.RecordRateLimitExceeded(rl.config.Name, c.Request.Method)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			util.RespondWithAPIError(c, apperrors.RateLimited("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
