package token

import (
	"sync"
	"time"
)

// RateLimiter gates issuance per caller key. Injected so the fixed
// window below can be swapped for a distributed limiter without
// touching the handler.
type RateLimiter interface {
	Allow(key string) bool
}

// FixedWindow allows at most limit requests per key per window.
type FixedWindow struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		window:  window,
		limit:   limit,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	b, ok := f.buckets[key]
	if !ok || now.Sub(b.start) >= f.window {
		f.buckets[key] = &bucket{start: now, count: 1}
		return true
	}
	if b.count >= f.limit {
		return false
	}
	b.count++
	return true
}

// RetryAfter reports how long the key's current window has left.
func (f *FixedWindow) RetryAfter(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.buckets[key]
	if !ok {
		return 0
	}
	remaining := f.window - f.now().Sub(b.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}
