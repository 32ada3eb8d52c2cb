package form

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"console/internal/adminapi"
	"console/internal/users/metrics"
	"console/internal/users/models"
	"console/pkg/platform/clock"
)

// stubChecker answers availability from in-memory tables. A value with a gate
// blocks until the gate is closed, ignoring cancellation, which models a
// response that arrives late.
type stubChecker struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan struct{}
	taken map[string]string
	fail  map[string]error
}

func newStubChecker() *stubChecker {
	return &stubChecker{
		gates: make(map[string]chan struct{}),
		taken: make(map[string]string),
		fail:  make(map[string]error),
	}
}

func (c *stubChecker) CheckUsername(_ context.Context, value string) (adminapi.Availability, error) {
	return c.check("username", value)
}

func (c *stubChecker) CheckEmail(_ context.Context, value string) (adminapi.Availability, error) {
	return c.check("email", value)
}

func (c *stubChecker) check(kind, value string) (adminapi.Availability, error) {
	c.mu.Lock()
	c.calls = append(c.calls, kind+":"+value)
	gate := c.gates[value]
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[value]; err != nil {
		return adminapi.Availability{}, err
	}
	if msg, ok := c.taken[value]; ok {
		return adminapi.Availability{Available: false, Message: msg}, nil
	}
	return adminapi.Availability{Available: true}, nil
}

func (c *stubChecker) gate(value string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan struct{})
	c.gates[value] = ch
	return ch
}

func (c *stubChecker) setTaken(value, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taken[value] = message
}

func (c *stubChecker) setFail(value string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[value] = err
}

func (c *stubChecker) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type EngineSuite struct {
	suite.Suite
	clock   *clock.Manual
	checker *stubChecker
	metrics *metrics.Metrics
	engine  *Engine
}

func (s *EngineSuite) SetupTest() {
	s.clock = clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.checker = newStubChecker()
	s.metrics = metrics.New(prometheus.NewRegistry())

	engine, err := New(s.checker,
		WithClock(s.clock),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
	s.engine = engine
}

func (s *EngineSuite) TearDownTest() {
	s.engine.Close()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) edit(field Field, value string) {
	s.Require().NoError(s.engine.Edit(field, value))
}

func (s *EngineSuite) fillValid() {
	s.edit(FieldUsername, "carol")
	s.edit(FieldEmail, "carol@example.com")
	s.edit(FieldFirstName, "Carol")
	s.edit(FieldLastName, "Jones")
	s.edit(FieldPassword, "secret1")
	s.edit(FieldConfirmPassword, "secret1")
}

func (s *EngineSuite) awaitStatus(field Field, want Status) {
	s.Require().Eventually(func() bool {
		r, _ := s.engine.State().Get(field)
		return r.Status == want
	}, time.Second, 2*time.Millisecond, "field %s never reached %s", field, want)
}

func (s *EngineSuite) awaitCalls(n int) {
	s.Require().Eventually(func() bool {
		return len(s.checker.Calls()) == n
	}, time.Second, 2*time.Millisecond)
}

func (s *EngineSuite) TestInitialStateIsUntouchedAndValid() {
	state := s.engine.State()
	for _, f := range ValidatedFields {
		r, ok := state.Get(f)
		s.Require().True(ok)
		s.Equal(StatusUntouched, r.Status)
		s.True(r.Valid)
		s.Empty(r.Message)
	}
	_, ok := state.Get(FieldCountry)
	s.False(ok)
}

func (s *EngineSuite) TestRapidEditsIssueOneCheckWithFinalValue() {
	for _, v := range []string{"alice1", "alice2", "alice3", "alice4", "alice5"} {
		s.edit(FieldUsername, v)
		s.clock.Advance(100 * time.Millisecond)
	}
	s.Empty(s.checker.Calls(), "no check before the debounce elapses")
	s.Equal(StatusCheckingRemote, s.engine.State().Username.Status)
	s.True(s.engine.State().Username.Valid, "a pending check does not mark the field invalid")

	s.clock.Advance(DefaultDebounce)
	s.awaitStatus(FieldUsername, StatusValid)

	s.Equal([]string{"username:alice5"}, s.checker.Calls())
	s.Equal(float64(4), promtest.ToFloat64(s.metrics.SupersededEdits.WithLabelValues("username")))
}

func (s *EngineSuite) TestLocallyInvalidValueMakesNoRemoteCall() {
	s.edit(FieldUsername, "ab")
	s.clock.Advance(time.Second)

	r := s.engine.State().Username
	s.Equal(StatusLocallyInvalid, r.Status)
	s.False(r.Valid)
	s.Equal("Username must be between 3 and 20 characters", r.Message)
	s.Empty(s.checker.Calls())
	s.Equal(0, s.clock.Pending())

	s.edit(FieldEmail, "not-an-email")
	s.Equal("Email must be a valid email address", s.engine.State().Email.Message)
	s.edit(FieldUsername, "bad name")
	s.Equal("Username may only contain letters, numbers, dots, underscores and hyphens", s.engine.State().Username.Message)
	s.clock.Advance(time.Second)
	s.Empty(s.checker.Calls())
}

func (s *EngineSuite) TestShortPasswordBlocksSubmitWithoutNetwork() {
	s.edit(FieldPassword, "ab")

	r := s.engine.State().Password
	s.False(r.Valid)
	s.Equal("Password must be between 6 and 40 characters", r.Message)

	_, err := s.engine.Submit(context.Background())
	var subErr *SubmissionError
	s.Require().ErrorAs(err, &subErr)
	s.Contains(subErr.Fields, FieldPassword)
	s.Equal("Password must be between 6 and 40 characters", subErr.State.Password.Message)
	s.Empty(s.checker.Calls())
}

func (s *EngineSuite) TestStaleResultIsDiscarded() {
	lateGate := s.checker.gate("alice")
	s.edit(FieldUsername, "alice")
	s.clock.Advance(DefaultDebounce)
	s.awaitCalls(1)

	s.edit(FieldUsername, "alice2")
	s.clock.Advance(DefaultDebounce)
	s.awaitStatus(FieldUsername, StatusValid)

	// the older request now answers "taken"
	s.checker.setTaken("alice", "Username is already taken")
	close(lateGate)

	stale := s.metrics.StaleResults.WithLabelValues("username")
	s.Require().Eventually(func() bool { return promtest.ToFloat64(stale) == 1 }, time.Second, 2*time.Millisecond)
	r := s.engine.State().Username
	s.Equal(StatusValid, r.Status)
	s.True(r.Valid)
	s.Empty(r.Message)
	s.Equal("alice2", s.engine.Values().Username)
}

func (s *EngineSuite) TestCheckErrorIsDistinctFromTaken() {
	s.checker.setFail("bob", errors.New("connection refused"))
	s.checker.setTaken("amy", "")
	s.checker.setTaken("amy@x.com", "Email already registered")

	s.edit(FieldUsername, "bob")
	s.clock.Advance(DefaultDebounce)
	s.awaitStatus(FieldUsername, StatusCheckFailed)
	r := s.engine.State().Username
	s.False(r.Valid)
	s.Equal("Unable to verify availability", r.Message)

	s.edit(FieldUsername, "amy")
	s.edit(FieldEmail, "amy@x.com")
	s.clock.Advance(DefaultDebounce)
	s.awaitStatus(FieldUsername, StatusRemoteInvalid)
	s.awaitStatus(FieldEmail, StatusRemoteInvalid)
	state := s.engine.State()
	s.Equal("Username is already taken", state.Username.Message)
	s.Equal("Email already registered", state.Email.Message)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.AvailabilityChecks.WithLabelValues("username", "error")))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.AvailabilityChecks.WithLabelValues("username", "taken")))
}

func (s *EngineSuite) TestPasswordConfirmation() {
	s.edit(FieldPassword, "secret1")
	s.edit(FieldConfirmPassword, "secret2")
	s.Equal("Passwords do not match", s.engine.State().ConfirmPassword.Message)

	s.edit(FieldPassword, "secret2")
	s.True(s.engine.State().ConfirmPassword.Valid, "editing the password re-checks a touched confirmation")

	s.edit(FieldPassword, "secret3")
	s.False(s.engine.State().ConfirmPassword.Valid)
}

func (s *EngineSuite) TestSyncFieldMessages() {
	s.edit(FieldFirstName, "")
	s.Equal("First name is required", s.engine.State().FirstName.Message)
	s.edit(FieldLastName, "J")
	s.Equal("Last name must be between 2 and 50 characters", s.engine.State().LastName.Message)
	s.edit(FieldLastName, "Jo")
	s.Equal(StatusValid, s.engine.State().LastName.Status)
}

func (s *EngineSuite) TestSubmitFlushesPendingChecks() {
	s.edit(FieldStatus, "active")
	s.edit(FieldCountry, "NZ")
	s.fillValid()

	req, err := s.engine.Submit(context.Background())
	s.Require().NoError(err)
	s.Equal(models.CreateUserRequest{
		Username:  "carol",
		Email:     "carol@example.com",
		Password:  "secret1",
		FirstName: "Carol",
		LastName:  "Jones",
		Country:   "NZ",
		Status:    models.StatusActive,
	}, req)
	s.ElementsMatch([]string{"username:carol", "email:carol@example.com"}, s.checker.Calls())
	s.Equal(0, s.clock.Pending())

	s.clock.Advance(time.Second)
	s.Len(s.checker.Calls(), 2, "flushed timers do not fire again")
}

func (s *EngineSuite) TestSubmitAwaitsInFlightCheck() {
	gate := s.checker.gate("carol")
	s.fillValid()
	s.clock.Advance(DefaultDebounce)
	s.awaitCalls(2)

	type result struct {
		req models.CreateUserRequest
		err error
	}
	out := make(chan result, 1)
	go func() {
		req, err := s.engine.Submit(context.Background())
		out <- result{req, err}
	}()

	select {
	case <-out:
		s.FailNow("submit returned before the username check settled")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	select {
	case r := <-out:
		s.Require().NoError(r.err)
		s.Equal("carol", r.req.Username)
	case <-time.After(time.Second):
		s.FailNow("submit never returned")
	}
}

func (s *EngineSuite) TestSubmitRetriesFailedCheckOnce() {
	s.checker.setFail("carol", errors.New("timeout"))
	s.fillValid()
	s.clock.Advance(DefaultDebounce)
	s.awaitStatus(FieldUsername, StatusCheckFailed)

	_, err := s.engine.Submit(context.Background())
	var subErr *SubmissionError
	s.Require().ErrorAs(err, &subErr)
	s.Equal([]Field{FieldUsername}, subErr.Fields)

	usernameCalls := 0
	for _, c := range s.checker.Calls() {
		if c == "username:carol" {
			usernameCalls++
		}
	}
	s.Equal(2, usernameCalls)

	s.checker.setFail("carol", nil)
	_, err = s.engine.Submit(context.Background())
	s.NoError(err, "a retry after recovery succeeds")
}

func (s *EngineSuite) TestSubmitHonoursContext() {
	gate := s.checker.gate("carol")
	defer close(gate)
	s.fillValid()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.engine.Submit(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *EngineSuite) TestCloseIgnoresLateResults() {
	gate := s.checker.gate("carol")
	s.edit(FieldUsername, "carol")
	s.clock.Advance(DefaultDebounce)
	s.awaitCalls(1)

	s.engine.Close()
	close(gate)

	s.ErrorIs(s.engine.Edit(FieldUsername, "dave"), ErrClosed)
	_, err := s.engine.Submit(context.Background())
	s.ErrorIs(err, ErrClosed)
	s.Equal(StatusCheckingRemote, s.engine.State().Username.Status)
}

func (s *EngineSuite) TestUnknownFieldAndBadStatus() {
	s.Error(s.engine.Edit(Field("nickname"), "x"))
	s.Error(s.engine.Edit(FieldStatus, "ARCHIVED"))
}

func TestNewRequiresChecker(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestFieldResultJSON(t *testing.T) {
	raw, err := json.Marshal(FieldResult{Status: StatusCheckingRemote, Valid: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"checking_remote","valid":true,"message":""}`, string(raw))

	var back FieldResult
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, StatusCheckingRemote, back.Status)
}

func TestSubmissionErrorMessage(t *testing.T) {
	err := &SubmissionError{Fields: []Field{FieldUsername, FieldPassword}}
	assert.Equal(t, "form has invalid fields: username, password", err.Error())
}
