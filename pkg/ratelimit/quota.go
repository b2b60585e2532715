package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// DefaultQuotaCeiling matches the upstream provider's free-tier requests per minute.
	DefaultQuotaCeiling = 15
	// DefaultQuotaWindow is the fixed window the ceiling applies to.
	DefaultQuotaWindow = 60 * time.Second
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// QuotaExceededError reports that the shared upstream credential is out of requests
// for the current window.
type QuotaExceededError struct {
	ResetIn time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("upstream quota exceeded, resets in %ds", e.ResetInSeconds())
}

// ResetInSeconds returns ResetIn in whole seconds.
func (e *QuotaExceededError) ResetInSeconds() int {
	return int(e.ResetIn / time.Second)
}

// QuotaStatus is a read-only snapshot of the tracker.
type QuotaStatus struct {
	Used           int
	Remaining      int
	ResetInSeconds int
}

// QuotaTracker counts requests made against one upstream credential in a fixed window.
// The window restarts on the first check after it has fully elapsed, so bursts straddling
// a boundary can reach twice the ceiling.
type QuotaTracker struct {
	ceiling int
	window  time.Duration
	now     Clock

	mu           sync.Mutex
	requestCount int
	windowStart  time.Time
}

// QuotaOption customizes a QuotaTracker.
type QuotaOption func(*QuotaTracker)

// WithClock replaces time.Now.
func WithClock(clock Clock) QuotaOption {
	return func(q *QuotaTracker) {
		q.now = clock
	}
}

// NewQuotaTracker creates a tracker. Non-positive arguments fall back to the defaults.
func NewQuotaTracker(ceiling int, window time.Duration, opts ...QuotaOption) *QuotaTracker {
	if ceiling <= 0 {
		ceiling = DefaultQuotaCeiling
	}
	if window <= 0 {
		window = DefaultQuotaWindow
	}
	q := &QuotaTracker{
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.windowStart = q.now()
	return q
}

// Ceiling returns the configured requests per window.
func (q *QuotaTracker) Ceiling() int {
	return q.ceiling
}

// CheckAndConsume records one upstream request, or returns *QuotaExceededError
// without recording anything when the window is full.
func (q *QuotaTracker) CheckAndConsume() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	elapsed := now.Sub(q.windowStart)
	if elapsed > q.window {
		q.requestCount = 0
		q.windowStart = now
		elapsed = 0
	}

	if q.requestCount >= q.ceiling {
		return &QuotaExceededError{ResetIn: q.resetIn(elapsed)}
	}

	q.requestCount++
	return nil
}

// Status reports usage without consuming. A window that has already elapsed is
// reported as empty, matching what the next CheckAndConsume will see.
func (q *QuotaTracker) Status() QuotaStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	elapsed := q.now().Sub(q.windowStart)
	if elapsed > q.window {
		return QuotaStatus{
			Used:           0,
			Remaining:      q.ceiling,
			ResetInSeconds: int(q.window / time.Second),
		}
	}

	remaining := q.ceiling - q.requestCount
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		Used:           q.requestCount,
		Remaining:      remaining,
		ResetInSeconds: int(q.resetIn(elapsed) / time.Second),
	}
}

// Reset empties the window and restarts it now.
func (q *QuotaTracker) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requestCount = 0
	q.windowStart = q.now()
}

// resetIn rounds the remaining window up to whole seconds, never below one.
func (q *QuotaTracker) resetIn(elapsed time.Duration) time.Duration {
	secs := int(math.Ceil((q.window - elapsed).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
