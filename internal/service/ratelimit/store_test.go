package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSweepEvictsStaleEntries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := store.Reserve(ctx, "old", base, DefaultCooldown)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = store.Reserve(ctx, "fresh", base.Add(15*time.Second), DefaultCooldown)
	require.NoError(t, err)
	require.True(t, ok)

	removed := store.Sweep(base.Add(25*time.Second), DefaultCooldown)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	// fresh is still cooling down after the sweep.
	remaining, ok, err := store.Reserve(ctx, "fresh", base.Add(25*time.Second), DefaultCooldown)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Second, remaining)
}

func TestMemoryStoreJanitorStopsWithContext(t *testing.T) {
	store := NewMemoryStore()
	_, _, err := store.Reserve(context.Background(), "client", time.Now().Add(-time.Hour), DefaultCooldown)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := store.StartJanitor(ctx, 10*time.Millisecond, DefaultCooldown)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStoreReserve(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	remaining, ok, err := store.Reserve(ctx, "client", now, DefaultCooldown)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, remaining)
	assert.True(t, mr.Exists(DefaultKeyPrefix+"client"))
	assert.Equal(t, DefaultCooldown, mr.TTL(DefaultKeyPrefix+"client"))

	remaining, ok, err = store.Reserve(ctx, "client", now, DefaultCooldown)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, DefaultCooldown, remaining)

	mr.FastForward(DefaultCooldown)

	_, ok, err = store.Reserve(ctx, "client", now, DefaultCooldown)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStoreRepairsKeyWithoutExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"client", "stale"))

	_, ok, err := store.Reserve(context.Background(), "client", time.Now(), DefaultCooldown)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultCooldown, mr.TTL(DefaultKeyPrefix+"client"))
}

func TestRedisStoreReportsConnectionErrors(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, ok, err := store.Reserve(context.Background(), "client", time.Now(), DefaultCooldown)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLimiterOverRedis(t *testing.T) {
	store, mr := newRedisStore(t)
	limiter := New(store, DefaultCooldown)
	ctx := context.Background()

	decision, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.False(t, decision.Limited)

	mr.FastForward(5 * time.Second)
	decision, err = limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, Decision{Limited: true, WaitSeconds: 15}, decision)
}
