package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// DefaultClientLimit is how many chat requests one client may send per window.
	DefaultClientLimit = 10
	// DefaultClientWindow is the client throttle window.
	DefaultClientWindow = 60 * time.Second
)

// ThrottledError reports that a single client exceeded its own request budget.
type ThrottledError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many requests from %s, retry after %s", e.Key, e.RetryAfter)
}

// ThrottleStore counts hits per key inside a fixed window.
// Hit must increment and return the new count atomically.
type ThrottleStore interface {
	Hit(ctx context.Context, key string) (int, error)
}

// ClientThrottle is the per-client gate in front of the shared upstream quota.
type ClientThrottle struct {
	store  ThrottleStore
	limit  int
	window time.Duration
}

// NewClientThrottle creates a throttle allowing limit hits per window for each key.
func NewClientThrottle(store ThrottleStore, limit int, window time.Duration) *ClientThrottle {
	if limit <= 0 {
		limit = DefaultClientLimit
	}
	if window <= 0 {
		window = DefaultClientWindow
	}
	return &ClientThrottle{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Allow records a hit for key. It returns *ThrottledError when the key is over its limit.
// Store failures are returned as-is so the caller can decide whether to fail open.
func (t *ClientThrottle) Allow(ctx context.Context, key string) error {
	count, err := t.store.Hit(ctx, key)
	if err != nil {
		return err
	}
	if count > t.limit {
		return &ThrottledError{Key: key, RetryAfter: t.window}
	}
	return nil
}

// Limit returns the configured hits per window.
func (t *ClientThrottle) Limit() int {
	return t.limit
}

// --- in-memory store ---

type windowCounter struct {
	count       int
	windowStart time.Time
}

// MemoryThrottleStore keeps counters in a go-cache whose janitor evicts keys
// once their window has passed, so idle clients do not accumulate.
type MemoryThrottleStore struct {
	window time.Duration
	now    Clock

	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryThrottleStore creates an in-process store. clock may be nil.
func NewMemoryThrottleStore(window time.Duration, clock Clock) *MemoryThrottleStore {
	if window <= 0 {
		window = DefaultClientWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryThrottleStore{
		window: window,
		now:    clock,
		cache:  cache.New(window, window),
	}
}

func (s *MemoryThrottleStore) Hit(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if x, found := s.cache.Get(key); found {
		wc := x.(*windowCounter)
		if now.Sub(wc.windowStart) <= s.window {
			wc.count++
			return wc.count, nil
		}
	}

	s.cache.Set(key, &windowCounter{count: 1, windowStart: now}, cache.DefaultExpiration)
	return 1, nil
}

// Len reports how many keys are currently tracked.
func (s *MemoryThrottleStore) Len() int {
	return s.cache.ItemCount()
}

// Reset drops every counter.
func (s *MemoryThrottleStore) Reset() {
	s.cache.Flush()
}
