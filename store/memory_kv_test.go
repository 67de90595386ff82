package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVStoreExpiry(t *testing.T) {
	kv := NewMemoryKVStore()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "session:1", "payload", time.Minute))
	val, err := kv.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "session:1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryKVStoreIncrKeepsFirstTTL(t *testing.T) {
	kv := NewMemoryKVStore()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	n, err := kv.Incr(ctx, "rl", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	now = now.Add(9 * time.Second)
	n, err = kv.Incr(ctx, "rl", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// окно истекло по первому TTL, счётчик начинается заново
	now = now.Add(time.Second)
	n, err = kv.Incr(ctx, "rl", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryKVStoreDel(t *testing.T) {
	kv := NewMemoryKVStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	require.NoError(t, kv.Del(ctx, "k"))
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryKVStoreSetNX(t *testing.T) {
	kv := NewMemoryKVStore()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "session:1", "revoked", time.Minute))
	written, err := kv.SetNX(ctx, "session:1", "stale", time.Minute)
	require.NoError(t, err)
	assert.False(t, written)
	val, err := kv.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, "revoked", val)

	// истёкший ключ считается отсутствующим
	now = now.Add(time.Minute)
	written, err = kv.SetNX(ctx, "session:1", "fresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, written)
	val, err = kv.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", val)
}
