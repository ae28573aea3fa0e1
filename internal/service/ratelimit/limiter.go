// Package ratelimit enforces a fixed cooldown between accepted generation
// requests of the same client key.
package ratelimit

import (
	"context"
	"time"
)

// DefaultCooldown 是同一客户端两次被接受请求之间的最短间隔。
const DefaultCooldown = 20 * time.Second

// Decision is the outcome of CheckAndRecord.
type Decision struct {
	Limited     bool
	WaitSeconds int
}

// Store persists the time of the last accepted request per key.
//
// Reserve records now for key when the key is outside its cooldown and
// reports ok=true. Otherwise it leaves the stored time untouched and reports
// the remaining part of the window.
type Store interface {
	Reserve(ctx context.Context, key string, now time.Time, cooldown time.Duration) (remaining time.Duration, ok bool, err error)
}

// Limiter applies one cooldown policy to every client key.
type Limiter struct {
	store    Store
	cooldown time.Duration
	now      func() time.Time
}

// New creates a Limiter backed by store. A non-positive cooldown disables
// limiting.
func New(store Store, cooldown time.Duration) *Limiter {
	return &Limiter{
		store:    store,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// WithClock replaces the time source, mainly for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Cooldown returns the configured window.
func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}

// CheckAndRecord rejects key while it is inside the cooldown window, and
// otherwise records the current time as its last accepted request. A
// rejected call never moves the window.
func (l *Limiter) CheckAndRecord(ctx context.Context, key string) (Decision, error) {
	if l.cooldown <= 0 {
		decisionsTotal.WithLabelValues(resultAllowed).Inc()
		return Decision{}, nil
	}

	remaining, ok, err := l.store.Reserve(ctx, key, l.now(), l.cooldown)
	if err != nil {
		decisionsTotal.WithLabelValues(resultError).Inc()
		return Decision{}, err
	}
	if ok {
		decisionsTotal.WithLabelValues(resultAllowed).Inc()
		return Decision{}, nil
	}

	decisionsTotal.WithLabelValues(resultLimited).Inc()
	return Decision{Limited: true, WaitSeconds: waitSeconds(remaining)}, nil
}

// waitSeconds rounds the remaining window, counted in whole milliseconds, up
// to whole seconds. A limited caller always waits at least one second.
func waitSeconds(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	ms := remaining.Milliseconds()
	return max(int((ms+999)/1000), 1)
}
