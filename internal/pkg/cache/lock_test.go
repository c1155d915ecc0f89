package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping test that requires Redis connection (set TEST_REDIS_ADDR)")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Skipping test, Redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestLockerExclusive(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	key := "webhook:lock:test:" + t.Name()
	rdb.Del(ctx, key)

	l := NewLocker(rdb)
	release, ok, err := l.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := l.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	key := "webhook:lock:test:" + t.Name()
	rdb.Del(ctx, key)

	l := NewLocker(rdb)
	release, ok, err := l.Acquire(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, rdb.Set(ctx, key, "someone-else", time.Second).Err())

	release()
	val, err := rdb.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	rdb.Del(ctx, key)
}

func TestLockerUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	_, ok, err := NewLocker(rdb).Acquire(context.Background(), "webhook:lock:x", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}
