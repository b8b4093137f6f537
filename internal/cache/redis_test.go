package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))

		val, err := c.Get(ctx, "key1")
		require.NoError(t, err)
		assert.Equal(t, "value1", string(val))
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := c.Get(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "key2", []byte("value2"), time.Minute)
		require.NoError(t, c.Delete(ctx, "key2"))

		val, _ := c.Get(ctx, "key2")
		assert.Nil(t, val)
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = c.Set(ctx, "expiring", []byte("temp"), time.Second)

		val, _ := c.Get(ctx, "expiring")
		assert.NotNil(t, val)

		mr.FastForward(2 * time.Second)

		val, _ = c.Get(ctx, "expiring")
		assert.Nil(t, val)
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		count, err := c.IncrementCounter(ctx, "velocity", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, _ = c.IncrementCounter(ctx, "velocity", time.Minute)
		assert.Equal(t, int64(2), count)

		mr.FastForward(2 * time.Minute)

		count, _ = c.IncrementCounter(ctx, "velocity", time.Minute)
		assert.Equal(t, int64(1), count, "window reset starts a fresh count")
	})

	t.Run("KeyPrefix", func(t *testing.T) {
		_ = c.Set(ctx, "prefixed", []byte("x"), time.Minute)
		assert.True(t, mr.Exists("marketcore:prefixed"))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
	})
}

func TestRedisCacheConnectFailure(t *testing.T) {
	_, err := NewRedisCache("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
