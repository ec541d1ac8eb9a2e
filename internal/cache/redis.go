// Package cache wraps the Redis client shared by rate limiting, realtime
// fan-out and small read-through caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient wraps redis.Client with the pool settings used everywhere
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings. host defaults to localhost and port to 6379.
func NewRedisClient(ctx context.Context, host, port, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return &RedisClient{client: client}, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Raw exposes the underlying client for pub/sub
func (rc *RedisClient) Raw() *redis.Client {
	return rc.client
}

func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Hit increments key and starts its window on the first hit. It returns the
// count within the current window.
func (rc *RedisClient) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// GetJSON decodes key into dest. found is false on a miss.
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dest any) (found bool, err error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (rc *RedisClient) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

// Remember returns the cached value of key, or calls load, caches its
// result for ttl and returns it. Redis errors fall through to load.
func Remember[T any](ctx context.Context, rc *RedisClient, name, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if rc == nil {
		return load(ctx)
	}

	var cached T
	found, err := rc.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		metrics.RecordCacheHit(name)
		return cached, nil
	}
	metrics.RecordCacheMiss(name)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := rc.SetJSON(ctx, key, value, ttl); err != nil {
		logger.Log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
