package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"console/internal/users/models"
	"console/pkg/platform/sentinel"
	"console/pkg/testutil"
)

func TestInMemoryListStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryListStore(WithMemoryTTL(time.Minute), WithMemoryClock(func() time.Time { return now }))

	testutil.Given(t, "an empty store", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	users := []models.User{{Username: "bob"}, {Username: "amy"}}
	require.NoError(t, store.Save(ctx, models.UserList{Users: users, FetchedAt: now}))

	testutil.When(t, "a snapshot was saved", func(t *testing.T) {
		list, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, users, list.Users)

		testutil.Then(t, "callers cannot mutate the cached copy", func(t *testing.T) {
			list.Users[0].Username = "mallory"
			users[1].Username = "eve"
			again, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "bob", again.Users[0].Username)
			assert.Equal(t, "amy", again.Users[1].Username)
		})
	})

	testutil.When(t, "the ttl has elapsed", func(t *testing.T) {
		now = now.Add(time.Minute)
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryListStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryListStore()
	require.NoError(t, store.Save(ctx, models.UserList{Users: []models.User{{Username: "bob"}}, FetchedAt: time.Now()}))
	require.NoError(t, store.Invalidate(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
