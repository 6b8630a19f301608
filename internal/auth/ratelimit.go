package auth

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 60 * time.Second
	DefaultMaxKeys     = 10000
)

// RateLimiter admits login attempts per client key over a sliding window.
//
// Keys are held in a bounded LRU whose entries expire one window after they
// were last written, so neither stale keys nor a flood of distinct keys can
// grow memory without limit. Evicting a live key forgets its attempts; that
// is the price of the bound.
type RateLimiter struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	attempts    *expirable.LRU[string, []time.Time]
	now         func() time.Time
}

// RateLimiterOption configures a RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// NewRateLimiter creates a limiter allowing maxAttempts per window for each
// of at most maxKeys client keys.
func NewRateLimiter(maxAttempts int, window time.Duration, maxKeys int, opts ...RateLimiterOption) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	l := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		attempts:    expirable.NewLRU[string, []time.Time](maxKeys, nil, window),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether key may make another attempt. It does not record one.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key)) < l.maxAttempts
}

// Record notes an attempt for key at the current time
func (l *RateLimiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts.Add(key, append(l.prune(key), l.now()))
}

// Attempt is Allow followed by Record in one critical section. A rejected
// attempt is not recorded.
func (l *RateLimiter) Attempt(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	times := l.prune(key)
	if len(times) >= l.maxAttempts {
		return false
	}
	l.attempts.Add(key, append(times, l.now()))
	return true
}

// RetryAfter returns how long until key gets a free slot again, or zero if
// it has one now.
func (l *RateLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	times := l.prune(key)
	if len(times) < l.maxAttempts {
		return 0
	}
	// The slot frees up when the oldest attempt that keeps us at the limit
	// slides out of the window.
	oldest := times[len(times)-l.maxAttempts]
	wait := oldest.Add(l.window).Sub(l.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// Window returns the sliding window length
func (l *RateLimiter) Window() time.Duration {
	return l.window
}

// Len returns the number of tracked keys
func (l *RateLimiter) Len() int {
	return l.attempts.Len()
}

// prune drops attempts older than the window and returns what is left.
// Callers hold l.mu.
func (l *RateLimiter) prune(key string) []time.Time {
	times, ok := l.attempts.Peek(key)
	if !ok {
		return nil
	}

	kept := cleanupOldAttempts(times, l.now().Add(-l.window))
	switch {
	case len(kept) == 0:
		l.attempts.Remove(key)
	case len(kept) != len(times):
		l.attempts.Add(key, kept)
	}
	return kept
}

// cleanupOldAttempts returns the attempts at or after cutoff, in order
func cleanupOldAttempts(times []time.Time, cutoff time.Time) []time.Time {
	validAttempts := make([]time.Time, 0, len(times))
	for _, attemptTime := range times {
		if !attemptTime.Before(cutoff) {
			validAttempts = append(validAttempts, attemptTime)
		}
	}
	return validAttempts
}
