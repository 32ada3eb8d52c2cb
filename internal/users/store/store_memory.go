package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"console/internal/users/models"
	"console/pkg/platform/sentinel"
)

// InMemoryListStore keeps the user list snapshot in process memory. It is the
// default cache for a single console instance.
type InMemoryListStore struct {
	mu   sync.RWMutex
	list *models.UserList
	ttl  time.Duration
	now  func() time.Time
}

type MemoryOption func(*InMemoryListStore)

// WithMemoryTTL expires the snapshot ttl after it was fetched. Zero keeps it
// until the next Save or Invalidate.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *InMemoryListStore) {
		s.ttl = ttl
	}
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryListStore) {
		s.now = now
	}
}

func NewInMemoryListStore(opts ...MemoryOption) *InMemoryListStore {
	s := &InMemoryListStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns a copy of the cached snapshot or sentinel.ErrNotFound.
func (s *InMemoryListStore) Load(_ context.Context) (*models.UserList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.list == nil {
		return nil, sentinel.ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(s.list.FetchedAt) >= s.ttl {
		return nil, sentinel.ErrNotFound
	}
	return &models.UserList{Users: slices.Clone(s.list.Users), FetchedAt: s.list.FetchedAt}, nil
}

// Save replaces the snapshot. The caller's slice is copied.
func (s *InMemoryListStore) Save(_ context.Context, list models.UserList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = &models.UserList{Users: slices.Clone(list.Users), FetchedAt: list.FetchedAt}
	return nil
}

func (s *InMemoryListStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = nil
	return nil
}
