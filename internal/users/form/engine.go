package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"console/internal/adminapi"
	"console/internal/users/metrics"
	"console/internal/users/models"
	"console/internal/users/rules"
	dErrors "console/pkg/domain-errors"
	"console/pkg/platform/clock"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultCheckTimeout = 5 * time.Second

	msgCheckFailed   = "Unable to verify availability"
	msgUsernameTaken = "Username is already taken"
	msgEmailTaken    = "Email is already in use"
)

// ErrClosed is returned by every operation on a closed engine.
var ErrClosed = errors.New("form closed")

// AvailabilityChecker answers whether a username or email is still free.
type AvailabilityChecker interface {
	CheckUsername(ctx context.Context, value string) (adminapi.Availability, error)
	CheckEmail(ctx context.Context, value string) (adminapi.Availability, error)
}

// asyncField tracks debounce and in-flight state for username or email.
type asyncField struct {
	field     Field
	takenMsg  string
	localRule func(string) error
	check     func(ctx context.Context, value string) (adminapi.Availability, error)

	seq    uint64
	timer  clock.Timer
	cancel context.CancelFunc
	// done is closed when the check issued for seq settles, stale or not.
	done chan struct{}
}

func (f *asyncField) stopTimer() bool {
	if f.timer == nil {
		return false
	}
	stopped := f.timer.Stop()
	f.timer = nil
	return stopped
}

func (f *asyncField) cancelInFlight() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Engine validates one creation form. It is safe for concurrent use; timers
// and remote checks run on their own goroutines and publish results under the
// engine lock.
type Engine struct {
	mu           sync.Mutex
	clock        clock.Clock
	debounce     time.Duration
	checkTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics

	values   Values
	state    ValidationState
	username *asyncField
	email    *asyncField

	base   context.Context
	stop   context.CancelFunc
	closed bool
}

type Option func(*Engine)

func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.debounce = d
		}
	}
}

func WithCheckTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.checkTimeout = d
		}
	}
}

// WithBaseContext sets the context remote checks derive from. Its values (the
// forwarded Authorization header, the request ID) reach the checker; its
// cancellation does not.
func WithBaseContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.base = context.WithoutCancel(ctx)
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine whose remote checks go through checker.
func New(checker AvailabilityChecker, opts ...Option) (*Engine, error) {
	if checker == nil {
		return nil, errors.New("availability checker is required")
	}
	e := &Engine{
		clock:        clock.Real(),
		debounce:     DefaultDebounce,
		checkTimeout: DefaultCheckTimeout,
		logger:       slog.Default(),
		state:        newValidationState(),
		base:         context.Background(),
		username: &asyncField{
			field:     FieldUsername,
			takenMsg:  msgUsernameTaken,
			localRule: rules.Username,
			check:     checker.CheckUsername,
		},
		email: &asyncField{
			field:     FieldEmail,
			takenMsg:  msgEmailTaken,
			localRule: rules.Email,
			check:     checker.CheckEmail,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.base, e.stop = context.WithCancel(e.base)
	return e, nil
}

// State returns a snapshot of the validation state.
func (e *Engine) State() ValidationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Values returns a snapshot of the raw inputs.
func (e *Engine) Values() Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values
}

// Edit records a new value for field and starts its validation.
func (e *Engine) Edit(field Field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	switch field {
	case FieldUsername:
		e.values.Username = value
		e.editAsync(e.username, value)
	case FieldEmail:
		e.values.Email = value
		e.editAsync(e.email, value)
	case FieldFirstName:
		e.values.FirstName = value
		e.state.FirstName = ruleResult(rules.FirstName(value))
	case FieldLastName:
		e.values.LastName = value
		e.state.LastName = ruleResult(rules.LastName(value))
	case FieldPassword:
		e.values.Password = value
		e.state.Password = ruleResult(rules.Password(value))
		if e.state.ConfirmPassword.Status != StatusUntouched {
			e.state.ConfirmPassword = ruleResult(rules.ConfirmPassword(value, e.values.ConfirmPassword))
		}
	case FieldConfirmPassword:
		e.values.ConfirmPassword = value
		e.state.ConfirmPassword = ruleResult(rules.ConfirmPassword(e.values.Password, value))
	case FieldCountry:
		if len(value) > 100 {
			return dErrors.New(dErrors.CodeValidation, "country must be 100 characters or less")
		}
		e.values.Country = value
	case FieldStatus:
		status, ok := models.ParseStatus(value)
		if !ok {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", value))
		}
		e.values.Status = status
	default:
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown field %q", field))
	}
	return nil
}

func ruleResult(err error) FieldResult {
	if err != nil {
		return invalid(StatusLocallyInvalid, rules.Message(err))
	}
	return valid()
}

// editAsync supersedes whatever the field was doing and validates value
// locally. A locally valid value waits out the debounce before its remote
// check. Caller holds e.mu.
func (e *Engine) editAsync(f *asyncField, value string) {
	f.seq++
	if f.stopTimer() {
		e.incSuperseded(f.field)
	}
	f.cancelInFlight()
	e.state.set(f.field, FieldResult{Status: StatusCheckingLocal, Valid: true})

	if err := f.localRule(value); err != nil {
		e.state.set(f.field, invalid(StatusLocallyInvalid, rules.Message(err)))
		return
	}
	e.state.set(f.field, FieldResult{Status: StatusCheckingRemote, Valid: true})

	seq := f.seq
	trimmed := strings.TrimSpace(value)
	f.timer = e.clock.AfterFunc(e.debounce, func() {
		e.fire(f, seq, trimmed)
	})
}

func (e *Engine) fire(f *asyncField, seq uint64, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || f.seq != seq {
		return
	}
	f.timer = nil
	e.startCheck(f, seq, value)
}

// startCheck issues the remote check for seq. Caller holds e.mu.
func (e *Engine) startCheck(f *asyncField, seq uint64, value string) {
	ctx, cancel := context.WithTimeout(e.base, e.checkTimeout)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done

	e.logger.Debug("availability check issued", "field", string(f.field), "seq", seq)
	go func() {
		defer close(done)
		defer cancel()
		avail, err := f.check(ctx, value)
		e.settle(f, seq, avail, err)
	}()
}

// settle publishes a check result unless a newer edit made it stale.
func (e *Engine) settle(f *asyncField, seq uint64, avail adminapi.Availability, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if f.seq != seq {
		e.logger.Debug("stale availability result dropped", "field", string(f.field), "seq", seq, "current_seq", f.seq)
		if e.metrics != nil {
			e.metrics.IncrementStaleResult(string(f.field))
		}
		return
	}
	f.cancel = nil

	var result FieldResult
	var outcome string
	switch {
	case err != nil:
		e.logger.Warn("availability check failed", "field", string(f.field), "error", err)
		result, outcome = invalid(StatusCheckFailed, msgCheckFailed), "error"
	case !avail.Available:
		msg := avail.Message
		if msg == "" {
			msg = f.takenMsg
		}
		result, outcome = invalid(StatusRemoteInvalid, msg), "taken"
	default:
		result, outcome = valid(), "available"
	}
	e.state.set(f.field, result)
	if e.metrics != nil {
		e.metrics.IncrementAvailabilityCheck(string(f.field), outcome)
	}
}

func (e *Engine) incSuperseded(field Field) {
	if e.metrics != nil {
		e.metrics.IncrementSupersededEdit(string(field))
	}
}

// Submit is the submission gate. It re-validates every field, issues pending
// debounced checks immediately, retries failed ones, waits for all remote
// checks to settle and returns the create request only when the whole form is
// valid. A blocked submit returns *SubmissionError.
func (e *Engine) Submit(ctx context.Context) (models.CreateUserRequest, error) {
	for retry := true; ; retry = false {
		waits, err := e.prepareSubmit(retry)
		if err != nil {
			return models.CreateUserRequest{}, err
		}
		if len(waits) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, done := range waits {
			g.Go(func() error {
				select {
				case <-done:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		if err := g.Wait(); err != nil {
			return models.CreateUserRequest{}, fmt.Errorf("awaiting availability checks: %w", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return models.CreateUserRequest{}, ErrClosed
	}
	if invalidFields := e.state.Invalid(); len(invalidFields) > 0 {
		return models.CreateUserRequest{}, &SubmissionError{State: e.state, Fields: invalidFields}
	}
	return e.values.Request(), nil
}

// prepareSubmit re-validates the synchronous fields and returns the channels
// of remote checks that have not settled yet. Failed checks are reissued only
// when retryFailed is set, so an unreachable API blocks the submit once
// instead of looping.
func (e *Engine) prepareSubmit(retryFailed bool) ([]<-chan struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	e.state.FirstName = ruleResult(rules.FirstName(e.values.FirstName))
	e.state.LastName = ruleResult(rules.LastName(e.values.LastName))
	e.state.Password = ruleResult(rules.Password(e.values.Password))
	e.state.ConfirmPassword = ruleResult(rules.ConfirmPassword(e.values.Password, e.values.ConfirmPassword))

	var waits []<-chan struct{}
	for _, f := range []*asyncField{e.username, e.email} {
		if done := e.flush(f, retryFailed); done != nil {
			waits = append(waits, done)
		}
	}
	return waits, nil
}

// flush brings an async field to a state where its result is final once the
// returned channel (if any) closes. Caller holds e.mu.
func (e *Engine) flush(f *asyncField, retryFailed bool) <-chan struct{} {
	value := e.valueOf(f.field)
	current, _ := e.state.Get(f.field)

	if err := f.localRule(value); err != nil {
		if current.Status != StatusLocallyInvalid {
			f.seq++
			f.stopTimer()
			f.cancelInFlight()
		}
		e.state.set(f.field, invalid(StatusLocallyInvalid, rules.Message(err)))
		return nil
	}

	switch {
	case f.timer != nil:
		// the bump also neutralizes a timer that fired but has not yet
		// acquired the lock
		f.stopTimer()
		f.seq++
		e.startCheck(f, f.seq, strings.TrimSpace(value))
		return f.done
	case current.Status == StatusCheckFailed && retryFailed:
		f.seq++
		e.state.set(f.field, FieldResult{Status: StatusCheckingRemote, Valid: true})
		e.startCheck(f, f.seq, strings.TrimSpace(value))
		return f.done
	case current.Status == StatusCheckingRemote:
		return f.done
	}
	return nil
}

func (e *Engine) valueOf(field Field) string {
	if field == FieldUsername {
		return e.values.Username
	}
	return e.values.Email
}

// Close stops pending timers and cancels in-flight checks. Results arriving
// afterwards are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, f := range []*asyncField{e.username, e.email} {
		f.stopTimer()
		f.cancelInFlight()
	}
	e.stop()
}
