// Package notify holds the transient notification feed behind the console's
// toast surface. Notifications expire after a short TTL and the feed keeps a
// bounded number of them; it is not a message log.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"console/pkg/requestcontext"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

const (
	DefaultCapacity = 50
	DefaultTTL      = 6 * time.Second
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Feed is a bounded ring of notifications. When full, the oldest entry is
// overwritten.
type Feed struct {
	mu     sync.Mutex
	ring   []Notification
	next   int
	size   int
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Feed)

func WithCapacity(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.ring = make([]Notification, n)
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(f *Feed) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		f.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		f.logger = logger
	}
}

func New(opts ...Option) *Feed {
	f := &Feed{
		ring:   make([]Notification, DefaultCapacity),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish appends a notification and logs it at a level matching its severity.
func (f *Feed) Publish(ctx context.Context, level Level, message string) Notification {
	now := f.now()
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(f.ttl),
	}

	f.mu.Lock()
	f.ring[f.next] = n
	f.next = (f.next + 1) % len(f.ring)
	f.size = min(f.size+1, len(f.ring))
	f.mu.Unlock()

	logLevel := slog.LevelInfo
	if level == LevelError {
		logLevel = slog.LevelWarn
	}
	f.logger.Log(ctx, logLevel, "notification",
		"level", string(level),
		"message", message,
		"request_id", requestcontext.RequestID(ctx),
	)
	return n
}

func (f *Feed) Success(ctx context.Context, message string) {
	f.Publish(ctx, LevelSuccess, message)
}

func (f *Feed) Error(ctx context.Context, message string) {
	f.Publish(ctx, LevelError, message)
}

func (f *Feed) Info(ctx context.Context, message string) {
	f.Publish(ctx, LevelInfo, message)
}

// Active returns unexpired notifications, newest first.
func (f *Feed) Active() []Notification {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notification, 0, f.size)
	for i := 1; i <= f.size; i++ {
		n := f.ring[(f.next-i+len(f.ring))%len(f.ring)]
		if n.ID == "" || !now.Before(n.ExpiresAt) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Dismiss removes the notification with id. It reports whether one was found.
func (f *Feed) Dismiss(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.ring, func(n Notification) bool { return n.ID == id && id != "" })
	if i < 0 {
		return false
	}
	f.ring[i] = Notification{}
	return true
}
