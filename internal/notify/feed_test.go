package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"console/pkg/testutil"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time { return f.t }

func newTestFeed(clock *fakeNow, opts ...Option) *Feed {
	base := []Option{
		WithClock(clock.now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func messages(ns []Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Message
	}
	return out
}

func TestFeedNewestFirst(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1000, 0)}
	feed := newTestFeed(clock)
	ctx := context.Background()

	feed.Success(ctx, "User created")
	feed.Error(ctx, "User bob already exists")
	feed.Info(ctx, "List refreshed")

	active := feed.Active()
	assert.Equal(t, []string{"List refreshed", "User bob already exists", "User created"}, messages(active))
	assert.Equal(t, LevelError, active[1].Level)
	assert.NotEmpty(t, active[0].ID)
}

func TestFeedExpires(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1000, 0)}
	feed := newTestFeed(clock, WithTTL(time.Second))
	feed.Info(context.Background(), "first")
	clock.t = clock.t.Add(500 * time.Millisecond)
	feed.Info(context.Background(), "second")

	clock.t = clock.t.Add(600 * time.Millisecond)
	assert.Equal(t, []string{"second"}, messages(feed.Active()))

	clock.t = clock.t.Add(time.Second)
	assert.Empty(t, feed.Active())
}

func TestFeedIsBounded(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1000, 0)}
	feed := newTestFeed(clock, WithCapacity(3))
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		feed.Info(context.Background(), m)
	}
	assert.Equal(t, []string{"e", "d", "c"}, messages(feed.Active()))
}

func TestFeedDismiss(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1000, 0)}
	feed := newTestFeed(clock)
	n := feed.Publish(context.Background(), LevelInfo, "hello")

	assert.True(t, feed.Dismiss(n.ID))
	assert.False(t, feed.Dismiss(n.ID))
	assert.False(t, feed.Dismiss(""))
	assert.Empty(t, feed.Active())
}

func TestHandler(t *testing.T) {
	clock := &fakeNow{t: time.Unix(1000, 0)}
	feed := newTestFeed(clock)
	n := feed.Publish(context.Background(), LevelSuccess, "Roles updated")

	r := chi.NewRouter()
	NewHandler(feed).Register(r)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/console/notifications"))
	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[listResponse](t, rr)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "Roles updated", body.Notifications[0].Message)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodDelete, "/console/notifications/"+n.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodDelete, "/console/notifications/"+n.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
