package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottleStore shares client counters between instances through Redis.
// Each key lives for one window from its first hit.
type RedisThrottleStore struct {
	rdb    redis.UniversalClient
	prefix string
	window time.Duration
}

// NewRedisThrottleStore creates a store that namespaces its keys with prefix.
func NewRedisThrottleStore(rdb redis.UniversalClient, prefix string, window time.Duration) *RedisThrottleStore {
	if window <= 0 {
		window = DefaultClientWindow
	}
	return &RedisThrottleStore{
		rdb:    rdb,
		prefix: prefix,
		window: window,
	}
}

func (s *RedisThrottleStore) Hit(ctx context.Context, key string) (int, error) {
	redisKey := s.prefix + key

	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, s.window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis throttle hit: %w", err)
	}
	return int(incr.Val()), nil
}
