package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in a shared Redis.
const DefaultKeyPrefix = "storyforge:ratelimit:"

// RedisStore keeps one key per client whose TTL is the remaining cooldown.
// The window is measured by the Redis server clock, so the now argument of
// Reserve is only stored as the key's value.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore wraps client. An empty prefix falls back to DefaultKeyPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Reserve implements Store with SET NX PX followed by PTTL on conflict.
func (s *RedisStore) Reserve(ctx context.Context, key string, now time.Time, cooldown time.Duration) (time.Duration, bool, error) {
	redisKey := s.prefix + key

	// 键可能在 SETNX 与 PTTL 之间过期，此时重新抢占一次。
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey, now.UnixMilli(), cooldown).Result()
		if err != nil {
			return 0, false, fmt.Errorf("redis setnx %s: %w", redisKey, err)
		}
		if ok {
			return 0, true, nil
		}

		ttl, err := s.client.PTTL(ctx, redisKey).Result()
		if err != nil {
			return 0, false, fmt.Errorf("redis pttl %s: %w", redisKey, err)
		}

		switch {
		case ttl > 0:
			return ttl, false, nil
		case ttl == -1:
			// 没有过期时间的残留键，直接覆盖。
			if err := s.client.Set(ctx, redisKey, now.UnixMilli(), cooldown).Err(); err != nil {
				return 0, false, fmt.Errorf("redis set %s: %w", redisKey, err)
			}
			return 0, true, nil
		}
	}

	return 0, false, fmt.Errorf("redis key %s kept expiring during reservation", redisKey)
}
