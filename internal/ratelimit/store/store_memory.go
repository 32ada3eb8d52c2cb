package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until a slot frees up.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	return max(secs, 1)
}

// InMemoryWindowStore limits each key to a number of requests per sliding
// window. It is per process; replicas each enforce their own budget.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

type Option func(*InMemoryWindowStore)

func WithClock(now func() time.Time) Option {
	return func(s *InMemoryWindowStore) {
		s.now = now
	}
}

func NewInMemoryWindowStore(limit int, window time.Duration, opts ...Option) *InMemoryWindowStore {
	s := &InMemoryWindowStore{
		buckets: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records a request for key if the window has room.
func (s *InMemoryWindowStore) Allow(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := prune(s.buckets[key], now.Add(-s.window))
	if len(stamps) >= s.limit {
		s.buckets[key] = stamps
		return Result{Allowed: false, Limit: s.limit, Remaining: 0, ResetAt: stamps[0].Add(s.window)}
	}
	stamps = append(stamps, now)
	s.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(stamps),
		ResetAt:   stamps[0].Add(s.window),
	}
}

// prune drops timestamps at or before cutoff; stamps are in arrival order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

// RemoveIdleAt forgets keys with no request inside the window as of now.
func (s *InMemoryWindowStore) RemoveIdleAt(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.window)
	removed := 0
	for key, stamps := range s.buckets {
		if len(prune(stamps, cutoff)) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs RemoveIdleAt every interval until ctx is cancelled.
func (s *InMemoryWindowStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RemoveIdleAt(s.now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Len reports the number of tracked keys.
func (s *InMemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
