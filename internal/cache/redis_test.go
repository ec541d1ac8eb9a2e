package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *RedisClient {
	t.Helper()
	rc, err := NewRedisClient(context.Background(), os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"), os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestRememberWithoutRedisCallsLoad(t *testing.T) {
	calls := 0
	v, err := Remember(context.Background(), nil, "test", "k", time.Minute, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestRememberCachesValue(t *testing.T) {
	rc := testClient(t)
	ctx := context.Background()
	key := "projecty:test:remember"
	require.NoError(t, rc.Del(ctx, key))

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"Art", "Tech"}, nil
	}

	first, err := Remember(ctx, rc, "test", key, time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(ctx, rc, "test", key, time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	rc := testClient(t)
	ctx := context.Background()
	key := "projecty:test:remember-err"
	require.NoError(t, rc.Del(ctx, key))

	_, err := Remember(ctx, rc, "test", key, time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)

	found, err := rc.GetJSON(ctx, key, new(int))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHitCountsWithinWindow(t *testing.T) {
	rc := testClient(t)
	ctx := context.Background()
	key := "projecty:test:hit"
	require.NoError(t, rc.Del(ctx, key))

	n, err := rc.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = rc.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
