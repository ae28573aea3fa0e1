package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cooldown time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(NewMemoryStore(), cooldown).WithClock(clock.Now), clock
}

func TestCheckAndRecordLimitsWithinCooldown(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultCooldown)
	ctx := context.Background()

	decision, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.False(t, decision.Limited)

	clock.Advance(5 * time.Second)
	decision, err = limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, Decision{Limited: true, WaitSeconds: 15}, decision)
}

func TestCheckAndRecordRoundsWaitUp(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultCooldown)
	ctx := context.Background()

	_, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)

	clock.Advance(19*time.Second + time.Millisecond)
	decision, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, 1, decision.WaitSeconds)

	clock.Advance(-18 * time.Second)
	decision, err = limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, 19, decision.WaitSeconds)
}

func TestRejectedRequestDoesNotResetWindow(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultCooldown)
	ctx := context.Background()

	_, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		clock.Advance(5 * time.Second)
		decision, err := limiter.CheckAndRecord(ctx, "client")
		require.NoError(t, err)
		assert.True(t, decision.Limited)
	}

	// 20s after the first accepted request, regardless of the rejections.
	clock.Advance(5 * time.Second)
	decision, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.False(t, decision.Limited)
}

func TestAcceptedRequestResetsWindow(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultCooldown)
	ctx := context.Background()

	_, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)

	clock.Advance(25 * time.Second)
	decision, err := limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.False(t, decision.Limited)

	clock.Advance(10 * time.Second)
	decision, err = limiter.CheckAndRecord(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, Decision{Limited: true, WaitSeconds: 10}, decision)
}

func TestKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(DefaultCooldown)
	ctx := context.Background()

	first, err := limiter.CheckAndRecord(ctx, "10.0.0.1")
	require.NoError(t, err)
	second, err := limiter.CheckAndRecord(ctx, "10.0.0.2")
	require.NoError(t, err)
	again, err := limiter.CheckAndRecord(ctx, "10.0.0.1")
	require.NoError(t, err)

	assert.False(t, first.Limited)
	assert.False(t, second.Limited)
	assert.True(t, again.Limited)
}

func TestZeroCooldownNeverLimits(t *testing.T) {
	limiter, _ := newTestLimiter(0)
	for i := 0; i < 5; i++ {
		decision, err := limiter.CheckAndRecord(context.Background(), "client")
		require.NoError(t, err)
		assert.False(t, decision.Limited)
	}
}

type failingStore struct{}

func (failingStore) Reserve(context.Context, string, time.Time, time.Duration) (time.Duration, bool, error) {
	return 0, false, errors.New("store down")
}

func TestStoreErrorIsReturned(t *testing.T) {
	limiter := New(failingStore{}, DefaultCooldown)

	decision, err := limiter.CheckAndRecord(context.Background(), "client")
	assert.EqualError(t, err, "store down")
	assert.False(t, decision.Limited)
}

func TestWaitSeconds(t *testing.T) {
	assert.Equal(t, 0, waitSeconds(0))
	assert.Equal(t, 1, waitSeconds(time.Nanosecond))
	assert.Equal(t, 1, waitSeconds(time.Second))
	assert.Equal(t, 2, waitSeconds(time.Second+time.Millisecond))
	assert.Equal(t, 1, waitSeconds(time.Second+400*time.Microsecond))
	assert.Equal(t, 1, waitSeconds(999*time.Millisecond+999*time.Microsecond))
	assert.Equal(t, 20, waitSeconds(DefaultCooldown))
}
