package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"console/internal/users/models"
	"console/pkg/platform/sentinel"
)

// DefaultListKey is where the shared snapshot lives.
const DefaultListKey = "console:users:list"

// RedisListStore shares the user list snapshot between console instances as a
// JSON document with an expiry.
type RedisListStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

type RedisOption func(*RedisListStore)

func WithKey(key string) RedisOption {
	return func(s *RedisListStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithRedisTTL sets the snapshot expiry. Zero stores it without expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisListStore) {
		s.ttl = ttl
	}
}

func NewRedisListStore(client *redis.Client, opts ...RedisOption) *RedisListStore {
	s := &RedisListStore{client: client, key: DefaultListKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisListStore) Load(ctx context.Context) (*models.UserList, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user list: %w", err)
	}
	var list models.UserList
	if err := json.Unmarshal(raw, &list); err != nil {
		// a snapshot we cannot read is as good as none
		return nil, fmt.Errorf("decode user list: %w", sentinel.ErrNotFound)
	}
	if list.Users == nil {
		list.Users = []models.User{}
	}
	return &list, nil
}

func (s *RedisListStore) Save(ctx context.Context, list models.UserList) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode user list: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save user list: %w", err)
	}
	return nil
}

func (s *RedisListStore) Invalidate(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("invalidate user list: %w", err)
	}
	return nil
}
