package search

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/projecty/backend/internal/cache"
	"github.com/projecty/backend/internal/posts"
)

// DefaultCacheTTL bounds how stale a cached result can be
const DefaultCacheTTL = 30 * time.Second

// CachedSearcher memoizes another Searcher in Redis. A nil client disables
// caching.
type CachedSearcher struct {
	next  Searcher
	redis *cache.RedisClient
	ttl   time.Duration
}

func NewCachedSearcher(next Searcher, redis *cache.RedisClient, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSearcher{next: next, redis: redis, ttl: ttl}
}

func cacheKey(kind, q string) string {
	return fmt.Sprintf("search:%s:%x", kind, md5.Sum([]byte(strings.ToLower(q))))
}

func (c *CachedSearcher) Users(ctx context.Context, q string) ([]UserHit, error) {
	return cache.Remember(ctx, c.redis, "search_users", cacheKey(TypeUsers, q), c.ttl, func(ctx context.Context) ([]UserHit, error) {
		return c.next.Users(ctx, q)
	})
}

func (c *CachedSearcher) Posts(ctx context.Context, q string) ([]posts.View, error) {
	return cache.Remember(ctx, c.redis, "search_posts", cacheKey(TypePosts, q), c.ttl, func(ctx context.Context) ([]posts.View, error) {
		return c.next.Posts(ctx, q)
	})
}
