package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientThrottleAllowsLimitPerWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryThrottleStore(time.Minute, clock.Now)
	throttle := NewClientThrottle(store, 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, throttle.Allow(ctx, "203.0.113.7"), "request %d", i+1)
	}

	err := throttle.Allow(ctx, "203.0.113.7")
	var throttled *ThrottledError
	require.True(t, errors.As(err, &throttled), "11th request should be throttled, got %v", err)
	assert.Equal(t, time.Minute, throttled.RetryAfter)

	// Other clients are independent.
	assert.NoError(t, throttle.Allow(ctx, "198.51.100.1"))
}

func TestClientThrottleWindowExpires(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryThrottleStore(time.Minute, clock.Now)
	throttle := NewClientThrottle(store, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, throttle.Allow(ctx, "a"))
	require.NoError(t, throttle.Allow(ctx, "a"))
	require.Error(t, throttle.Allow(ctx, "a"))

	clock.Advance(time.Minute + time.Second)
	assert.NoError(t, throttle.Allow(ctx, "a"))
}

func TestMemoryThrottleStoreResetAndLen(t *testing.T) {
	store := NewMemoryThrottleStore(time.Minute, nil)
	ctx := context.Background()

	_, _ = store.Hit(ctx, "a")
	_, _ = store.Hit(ctx, "b")
	assert.Equal(t, 2, store.Len())

	store.Reset()
	assert.Equal(t, 0, store.Len())
	n, err := store.Hit(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string) (int, error) {
	return 0, errors.New("store down")
}

func TestClientThrottlePropagatesStoreErrors(t *testing.T) {
	throttle := NewClientThrottle(failingStore{}, 10, time.Minute)

	err := throttle.Allow(context.Background(), "a")
	require.Error(t, err)
	var throttled *ThrottledError
	assert.False(t, errors.As(err, &throttled))
}

func TestMemoryThrottleStoreConcurrentHits(t *testing.T) {
	store := NewMemoryThrottleStore(time.Minute, nil)
	throttle := NewClientThrottle(store, 10, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if throttle.Allow(context.Background(), "same-ip") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}

func TestRedisThrottleStoreReportsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	throttle := NewClientThrottle(NewRedisThrottleStore(rdb, "test:", time.Minute), 10, time.Minute)

	err := throttle.Allow(context.Background(), "10.0.0.1")

	require.Error(t, err)
	var throttled *ThrottledError
	assert.False(t, errors.As(err, &throttled))
	assert.Contains(t, err.Error(), "redis throttle hit")
}
