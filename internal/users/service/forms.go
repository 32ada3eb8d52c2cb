package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"console/internal/users/form"
	"console/internal/users/metrics"
	"console/internal/users/models"
	dErrors "console/pkg/domain-errors"
	"console/pkg/email"
	"console/pkg/platform/clock"
	"console/pkg/requestcontext"
)

const DefaultFormTTL = 30 * time.Minute

// FormSnapshot is what the UI renders for an open creation form.
// Submittable is true once every field has been edited and has settled valid.
type FormSnapshot struct {
	ID          string               `json:"id"`
	State       form.ValidationState `json:"state"`
	Values      form.Values          `json:"values"`
	Submittable bool                 `json:"submittable"`
	Suggestion  *NameSuggestion      `json:"suggestion,omitempty"`
}

// NameSuggestion offers names derived from the email while both name fields
// are still empty.
type NameSuggestion struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type formSession struct {
	engine   *form.Engine
	lastUsed time.Time
}

// FormRegistry keeps one validation engine per open creation dialog. Sessions
// idle longer than the TTL are closed by RemoveIdleAt.
type FormRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*formSession
	users      *Service
	ttl        time.Duration
	clock      clock.Clock
	engineOpts []form.Option
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type FormOption func(*FormRegistry)

func WithFormTTL(ttl time.Duration) FormOption {
	return func(r *FormRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithFormClock drives both session expiry and the engines' debounce timers.
func WithFormClock(c clock.Clock) FormOption {
	return func(r *FormRegistry) {
		r.clock = c
	}
}

// WithEngineOptions are applied to every engine the registry creates.
func WithEngineOptions(opts ...form.Option) FormOption {
	return func(r *FormRegistry) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

func WithFormLogger(logger *slog.Logger) FormOption {
	return func(r *FormRegistry) {
		r.logger = logger
	}
}

func WithFormMetrics(m *metrics.Metrics) FormOption {
	return func(r *FormRegistry) {
		r.metrics = m
	}
}

func NewFormRegistry(users *Service, opts ...FormOption) (*FormRegistry, error) {
	if users == nil {
		return nil, errors.New("users service is required")
	}
	r := &FormRegistry{
		sessions: make(map[string]*formSession),
		users:    users,
		ttl:      DefaultFormTTL,
		clock:    clock.Real(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

var errFormNotFound = dErrors.New(dErrors.CodeNotFound, "form not found")

// Open starts a form session. Remote checks issued by the session carry the
// values of ctx, including the caller's Authorization header.
func (r *FormRegistry) Open(ctx context.Context) (*FormSnapshot, error) {
	opts := append([]form.Option{
		form.WithClock(r.clock),
		form.WithLogger(r.logger),
		form.WithMetrics(r.metrics),
		form.WithBaseContext(ctx),
	}, r.engineOpts...)
	engine, err := form.New(r.users, opts...)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &formSession{engine: engine, lastUsed: r.clock.Now()}
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.OpenForms.Inc()
	}

	r.logger.InfoContext(ctx, "creation form opened",
		"request_id", requestcontext.RequestID(ctx),
		"form_id", id,
	)
	return snapshot(id, engine), nil
}

func snapshot(id string, e *form.Engine) *FormSnapshot {
	snap := &FormSnapshot{ID: id, State: e.State(), Values: e.Values()}
	snap.Submittable = snap.State.AllValid() && !hasUntouched(snap.State)
	if snap.Values.FirstName == "" && snap.Values.LastName == "" && snap.State.Email.Status != form.StatusLocallyInvalid {
		if first, last, ok := email.SuggestName(snap.Values.Email); ok {
			snap.Suggestion = &NameSuggestion{FirstName: first, LastName: last}
		}
	}
	return snap
}

func hasUntouched(state form.ValidationState) bool {
	for _, f := range form.ValidatedFields {
		if r, _ := state.Get(f); r.Status == form.StatusUntouched {
			return true
		}
	}
	return false
}

func (r *FormRegistry) get(id string) (*form.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, errFormNotFound
	}
	sess.lastUsed = r.clock.Now()
	return sess.engine, nil
}

func (r *FormRegistry) Get(id string) (*FormSnapshot, error) {
	engine, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return snapshot(id, engine), nil
}

// Edit applies one field edit and returns the resulting state.
func (r *FormRegistry) Edit(id string, field form.Field, value string) (*FormSnapshot, error) {
	engine, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := engine.Edit(field, value); err != nil {
		if errors.Is(err, form.ErrClosed) {
			return nil, errFormNotFound
		}
		return nil, err
	}
	return snapshot(id, engine), nil
}

// Submit runs the submission gate and, when it passes, creates the user. The
// session is closed on success and kept open on failure so the operator can
// correct the form.
func (r *FormRegistry) Submit(ctx context.Context, id string) (*models.User, error) {
	engine, err := r.get(id)
	if err != nil {
		return nil, err
	}
	req, err := engine.Submit(ctx)
	if err != nil {
		if errors.Is(err, form.ErrClosed) {
			return nil, errFormNotFound
		}
		return nil, err
	}
	created, err := r.users.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	r.remove(id)
	return created, nil
}

// Discard closes a session without submitting.
func (r *FormRegistry) Discard(id string) error {
	if !r.remove(id) {
		return errFormNotFound
	}
	return nil
}

func (r *FormRegistry) remove(id string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	sess.engine.Close()
	if r.metrics != nil {
		r.metrics.OpenForms.Dec()
	}
	return true
}

// Len reports the number of open sessions.
func (r *FormRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartCleanup closes idle sessions every interval until ctx is cancelled.
func (r *FormRegistry) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.RemoveIdleAt(r.clock.Now()); n > 0 {
				r.logger.InfoContext(ctx, "closed idle creation forms", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RemoveIdleAt closes every session unused for at least the TTL as of now.
// Exported for testability; background cleanup passes the registry clock.
func (r *FormRegistry) RemoveIdleAt(now time.Time) int {
	r.mu.Lock()
	var idle []string
	for id, sess := range r.sessions {
		if now.Sub(sess.lastUsed) >= r.ttl {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, id := range idle {
		if r.remove(id) {
			removed++
		}
	}
	return removed
}

// Close discards every session.
func (r *FormRegistry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.remove(id)
	}
}
