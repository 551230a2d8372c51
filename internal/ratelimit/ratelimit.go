// Package ratelimit holds the counter stores behind the rate limiting
// middleware. Both stores implement echo's middleware.RateLimiterStore.
//
// The limit is a fixed window: the first request from a client opens a
// window of Period, and at most Limit requests are allowed until it ends.
package ratelimit

import (
	"sync"
	"time"
)

// FixedWindowStore keeps counters in process memory.
//
// Counters are not shared between instances, so with N instances a client
// gets up to N*Limit requests per window. Use RedisStore when that matters.
type FixedWindowStore struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewFixedWindowStore returns a store allowing limit requests per period.
func NewFixedWindowStore(limit int, period time.Duration) *FixedWindowStore {
	return &FixedWindowStore{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Tests use it to move time forward.
func (s *FixedWindowStore) WithClock(now func() time.Time) *FixedWindowStore {
	s.now = now
	return s
}

// Allow counts a request from identifier and reports whether it is within the limit.
func (s *FixedWindowStore) Allow(identifier string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[identifier]
	if !ok || now.Sub(w.start) >= s.period {
		w = &window{start: now}
		s.windows[identifier] = w
	}

	if w.count >= s.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Sweep drops expired windows and returns how many were removed.
// Without it the map grows with every client ever seen.
func (s *FixedWindowStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, w := range s.windows {
		if now.Sub(w.start) >= s.period {
			delete(s.windows, id)
			removed++
		}
	}
	return removed
}

// Len reports how many clients currently have an open window.
func (s *FixedWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
