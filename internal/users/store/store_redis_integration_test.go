//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"console/internal/users/models"
	"console/internal/users/store"
	"console/pkg/platform/sentinel"
	"console/pkg/testutil/containers"
)

type RedisListStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisListStore
}

func TestRedisListStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListStoreSuite))
}

func (s *RedisListStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedisListStore(s.redis.Client, store.WithRedisTTL(time.Minute))
}

func (s *RedisListStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListStoreSuite) TestMissIsNotFound() {
	_, err := s.store.Load(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisListStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	users := []models.User{
		{Username: "bob", Email: "b@x.com", Status: models.StatusActive, Roles: []string{"admin"}, CreatedAt: fetched},
		{Username: "amy", Email: "a@x.com", Status: models.StatusBlocked, Roles: []string{}, CreatedAt: fetched},
	}
	s.Require().NoError(s.store.Save(ctx, models.UserList{Users: users, FetchedAt: fetched}))

	list, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(users, list.Users)
	s.True(fetched.Equal(list.FetchedAt))

	ttl, err := s.redis.Client.TTL(ctx, store.DefaultListKey).Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

func (s *RedisListStoreSuite) TestInvalidate() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, models.UserList{Users: []models.User{{Username: "bob"}}}))
	s.Require().NoError(s.store.Invalidate(ctx))

	_, err := s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisListStoreSuite) TestCorruptSnapshotIsAMiss() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, store.DefaultListKey, "{not json", 0).Err())

	_, err := s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
