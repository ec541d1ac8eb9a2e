package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/util"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(util.ContextUserID, id)
		}
		c.Next()
	})
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func get(router *gin.Engine, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMemoryRateLimiter(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitConfig{Name: "t", Limit: 3, Window: time.Second})
	router := newRouter(limiter.Middleware())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "").Code, "request %d should succeed", i+1)
	}

	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router, "").Code)
}

func TestMemoryRateLimiterKeysByUser(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitConfig{Name: "t", Limit: 2, Window: time.Minute})
	router := newRouter(limiter.Middleware())

	assert.Equal(t, http.StatusOK, get(router, "a").Code)
	assert.Equal(t, http.StatusOK, get(router, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "a").Code)

	assert.Equal(t, http.StatusOK, get(router, "b").Code)
}

func TestMemoryRateLimiterPrune(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitConfig{Name: "t", Limit: 2, Window: time.Minute})
	limiter.Allow("k1")
	limiter.Allow("k2")

	assert.Equal(t, 0, limiter.Prune(time.Now()))
	assert.Equal(t, 2, limiter.Prune(time.Now().Add(2*time.Minute)))
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig(0)
	assert.Equal(t, 120, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)

	assert.Equal(t, 30, DefaultRateLimitConfig(30).Limit)
	assert.Equal(t, 10, AuthRateLimitConfig().Limit)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRedisRateLimitMiddleware(t *testing.T) {
	counter := &fakeCounter{}
	router := newRouter(RedisRateLimitMiddleware(counter, RateLimitConfig{Name: "api", Limit: 2, Window: time.Minute}))

	w := get(router, "u1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, get(router, "u1").Code)
	w = get(router, "u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(router, "u2").Code)
	assert.Contains(t, counter.counts, "rate_limit:api:user:u1")
}

func TestRedisRateLimitMiddlewareFailsClosed(t *testing.T) {
	counter := &fakeCounter{err: errors.New("connection refused")}
	router := newRouter(RedisRateLimitMiddleware(counter, DefaultRateLimitConfig(10)))

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "").Code)
}
