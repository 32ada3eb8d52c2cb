package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newAdminAPIBreaker(clock *testClock) *Breaker {
	return New("adminapi",
		WithFailureThreshold(3),
		WithSuccessThreshold(2),
		WithCooldown(30*time.Second),
		WithClock(clock.Now),
	)
}

func TestDefaults(t *testing.T) {
	b := New("adminapi")
	assert.Equal(t, "adminapi", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	for range 4 {
		open, _ := b.RecordFailure()
		assert.False(t, open)
	}
	open, change := b.RecordFailure()
	assert.True(t, open)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())
}

func TestAdminAPIOutageLifecycle(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	b := newAdminAPIBreaker(clock)

	// list_users fails while the API is down
	for i := range 3 {
		require.True(t, b.Allow(), "call %d is attempted", i+1)
		open, change := b.RecordFailure()
		assert.Equal(t, i == 2, open)
		assert.Equal(t, i == 2, change.Opened)
	}
	require.True(t, b.IsOpen())

	// console requests fail fast during the cooldown
	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow())

	// the first trial call after the cooldown still fails and restarts it
	clock.Advance(time.Second)
	require.True(t, b.Allow())
	open, change := b.RecordFailure()
	assert.True(t, open)
	assert.Equal(t, StateChange{}, change)
	assert.False(t, b.Allow(), "failed trial call restarts the cooldown")

	// the API is back: two good trial calls close the circuit
	clock.Advance(30 * time.Second)
	require.True(t, b.Allow())
	closed, change := b.RecordSuccess()
	assert.False(t, closed)
	assert.Equal(t, StateChange{}, change)
	assert.True(t, b.IsOpen())

	closed, change = b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestSuccessBreaksFailureStreak(t *testing.T) {
	clock := &testClock{now: time.Now()}
	b := newAdminAPIBreaker(clock)

	b.RecordFailure()
	b.RecordFailure()
	closed, change := b.RecordSuccess()
	assert.True(t, closed)
	assert.Equal(t, StateChange{}, change)

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "failures must be consecutive")
}

func TestFailureWhileProbingResetsSuccessCount(t *testing.T) {
	clock := &testClock{now: time.Now()}
	b := newAdminAPIBreaker(clock)
	for range 3 {
		b.RecordFailure()
	}
	clock.Advance(30 * time.Second)

	b.RecordSuccess()
	b.RecordFailure()
	clock.Advance(30 * time.Second)
	closed, _ := b.RecordSuccess()
	assert.False(t, closed, "a single success after a failed trial call is not enough")
	closed, _ = b.RecordSuccess()
	assert.True(t, closed)
}

func TestReset(t *testing.T) {
	clock := &testClock{now: time.Now()}
	b := newAdminAPIBreaker(clock)
	for range 3 {
		b.RecordFailure()
	}
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "reset clears the failure streak")
}

func TestInvalidOptionsKeepDefaults(t *testing.T) {
	b := New("adminapi", WithFailureThreshold(0), WithSuccessThreshold(-1), WithClock(nil))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow(), "default clock and cooldown still apply")
}

func TestConcurrentCallers(t *testing.T) {
	b := New("adminapi", WithFailureThreshold(50))
	var wg sync.WaitGroup
	var mu sync.Mutex
	opened := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
	assert.Equal(t, 1, opened, "exactly one caller observes the transition")
}
