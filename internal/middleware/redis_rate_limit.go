package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/projecty/backend/internal/errors"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/util"
	"go.uber.org/zap"
)

// HitCounter counts requests per key in a fixed window.
// *cache.RedisClient implements it.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimitMiddleware is a fixed-window limiter shared by every server
// instance. Authenticated callers are keyed by user id, others by IP. When
// Redis errors the request is rejected with 503.
func RedisRateLimitMiddleware(counter HitCounter, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", cfg.Name, rateLimitKey(c))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := counter.Hit(ctx, key, cfg.Window)
		if err != nil {
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, apperrors.ServiceUnavailable("rate limiter unavailable"))
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			metrics.RecordRateLimitExceeded(cfg.Name, c.Request.Method)
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("key", key),
				zap.Int64("count", count),
			)
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			util.RespondWithAPIError(c, apperrors.RateLimited("rate limit exceeded"))
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	if userID := c.GetString(util.ContextUserID); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
