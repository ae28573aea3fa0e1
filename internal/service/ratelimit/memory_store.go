package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps last-accepted timestamps in a process-local map.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

// Reserve implements Store.
func (s *MemoryStore) Reserve(_ context.Context, key string, now time.Time, cooldown time.Duration) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < cooldown {
			return cooldown - elapsed, false, nil
		}
	}

	s.last[key] = now
	trackedKeys.Set(float64(len(s.last)))
	return 0, true, nil
}

// Sweep removes entries whose cooldown has fully elapsed at now and returns
// how many were removed. Such entries can no longer limit anyone.
func (s *MemoryStore) Sweep(now time.Time, cooldown time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, last := range s.last {
		if now.Sub(last) >= cooldown {
			delete(s.last, key)
			removed++
		}
	}

	trackedKeys.Set(float64(len(s.last)))
	evictedKeysTotal.Add(float64(removed))
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}

// StartJanitor sweeps stale entries every interval until ctx is cancelled.
// The returned channel is closed once the goroutine has exited.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval, cooldown time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now, cooldown)
			}
		}
	}()

	return done
}
