// Package service owns the console's user operations: the cached, derived
// user list, mutations against the admin API and the creation form sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"console/internal/adminapi"
	"console/internal/users/listing"
	"console/internal/users/metrics"
	"console/internal/users/models"
	"console/internal/users/rules"
	dErrors "console/pkg/domain-errors"
	"console/pkg/platform/sentinel"
	"console/pkg/requestcontext"
)

// API is the subset of the admin API the users module calls.
type API interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, username string, req models.UpdateUserRequest) error
	DeleteUser(ctx context.Context, username string) error
	SetStatus(ctx context.Context, username string, status models.Status) error
	SetRoles(ctx context.Context, username string, roles []string) error
	CheckUsername(ctx context.Context, value string) (adminapi.Availability, error)
	CheckEmail(ctx context.Context, value string) (adminapi.Availability, error)
}

// ListCache holds the last fetched user list.
type ListCache interface {
	Load(ctx context.Context) (*models.UserList, error)
	Save(ctx context.Context, list models.UserList) error
	Invalidate(ctx context.Context) error
}

// Notifier surfaces operation outcomes to the operator.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

type noopNotifier struct{}

func (noopNotifier) Success(context.Context, string) {}
func (noopNotifier) Error(context.Context, string)   {}

const refreshKey = "users"

// Service implements the users module operations.
type Service struct {
	api      API
	cache    ListCache
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	refresh  singleflight.Group
	now      func() time.Time

	// epoch advances on every confirmed mutation. A fetch started in an older
	// epoch never reaches the cache.
	mu    sync.Mutex
	epoch uint64
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(api API, cache ListCache, opts ...Option) (*Service, error) {
	if api == nil {
		return nil, errors.New("admin api client is required")
	}
	if cache == nil {
		return nil, errors.New("list cache is required")
	}
	s := &Service{
		api:      api,
		cache:    cache,
		notifier: noopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns one page of the derived list for f. The full list is read
// through the cache.
func (s *Service) List(ctx context.Context, f models.Filter) (*models.UserPage, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	page := listing.Page(list.Users, f)
	return &page, nil
}

func (s *Service) load(ctx context.Context) (*models.UserList, error) {
	list, err := s.cache.Load(ctx)
	if err == nil {
		if s.metrics != nil {
			s.metrics.IncrementCacheHit()
		}
		return list, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "user list cache unavailable, fetching from api",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}
	return s.Refresh(ctx)
}

// Refresh re-fetches the list from the admin API and replaces the cached copy.
// Concurrent refreshes share one API call. On failure the cached copy is kept
// and the operator is notified.
func (s *Service) Refresh(ctx context.Context) (*models.UserList, error) {
	ch := s.refresh.DoChan(refreshKey, func() (any, error) {
		// the shared call outlives any single caller's cancellation
		fetchCtx := context.WithoutCancel(ctx)
		epoch := s.currentEpoch()
		start := time.Now()
		users, err := s.api.ListUsers(fetchCtx)
		if s.metrics != nil {
			s.metrics.ObserveRefresh(start, err)
		}
		if err != nil {
			return nil, err
		}
		list := models.UserList{Users: users, FetchedAt: s.stamp(ctx)}
		s.saveIfCurrent(fetchCtx, epoch, list)
		return &list, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			fetchErr := &FetchError{Message: "Failed to load users: " + adminapi.Message(res.Err), Err: res.Err}
			s.logger.ErrorContext(ctx, "user list refresh failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", res.Err,
			)
			s.notifier.Error(ctx, fetchErr.Message)
			return nil, fetchErr
		}
		return res.Val.(*models.UserList), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Service) saveIfCurrent(ctx context.Context, epoch uint64, list models.UserList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.logger.DebugContext(ctx, "discarding user list fetched before a mutation",
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	if err := s.cache.Save(ctx, list); err != nil {
		s.logger.WarnContext(ctx, "failed to cache user list",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// invalidate starts a new epoch and drops the cached list so the next read
// and the next refresh both go to the admin API.
func (s *Service) invalidate(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	err := s.cache.Invalidate(ctx)
	s.mu.Unlock()
	s.refresh.Forget(refreshKey)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate user list cache",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// stamp is the request-scoped time unless a clock was injected.
func (s *Service) stamp(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

// mutate runs call and applies the shared mutation outcome handling: a failure
// becomes a *MutationError and an error notification with the cached list left
// as it was; a success is announced and followed by a refresh.
func (s *Service) mutate(ctx context.Context, op, username, success string, call func(context.Context) error) error {
	err := call(ctx)
	if s.metrics != nil {
		s.metrics.IncrementMutation(op, err)
	}
	if err != nil {
		mErr := &MutationError{Op: op, Username: username, Message: adminapi.Message(err), Err: err}
		s.logger.WarnContext(ctx, "user mutation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"op", op,
			"username", username,
			"error", err,
		)
		s.notifier.Error(ctx, mErr.Message)
		return mErr
	}

	s.logger.InfoContext(ctx, "user mutation applied",
		"request_id", requestcontext.RequestID(ctx),
		"op", op,
		"username", username,
	)
	s.notifier.Success(ctx, success)
	s.invalidate(ctx)
	if _, err := s.Refresh(ctx); err != nil {
		// the mutation itself succeeded; the failed refresh was already reported
		s.logger.WarnContext(ctx, "refresh after mutation failed",
			"request_id", requestcontext.RequestID(ctx),
			"op", op,
		)
	}
	return nil
}

func requireUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	return username, nil
}

// ValidateCreate applies every local field rule to a create request.
func ValidateCreate(req models.CreateUserRequest) error {
	checks := []error{
		rules.Username(req.Username),
		rules.Email(req.Email),
		rules.FirstName(req.FirstName),
		rules.LastName(req.LastName),
		rules.Password(req.Password),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if req.Status != "" && !req.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	return nil
}

// Create creates a user. Availability is not re-checked here; the admin API
// rejects duplicates itself.
func (s *Service) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}
	var created *models.User
	err := s.mutate(ctx, "create_user", req.Username, fmt.Sprintf("User %s created successfully", req.Username),
		func(ctx context.Context) error {
			var err error
			created, err = s.api.CreateUser(ctx, req)
			return err
		})
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = &models.User{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Country:   req.Country,
			Status:    req.Status,
			Roles:     []string{},
		}
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, username string, req models.UpdateUserRequest) error {
	username, err := requireUsername(username)
	if err != nil {
		return err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "update_user", username, fmt.Sprintf("User %s updated successfully", username),
		func(ctx context.Context) error { return s.api.UpdateUser(ctx, username, req) })
}

func (s *Service) Delete(ctx context.Context, username string) error {
	username, err := requireUsername(username)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "delete_user", username, fmt.Sprintf("User %s deleted successfully", username),
		func(ctx context.Context) error { return s.api.DeleteUser(ctx, username) })
}

func (s *Service) SetStatus(ctx context.Context, username string, req models.StatusRequest) error {
	username, err := requireUsername(username)
	if err != nil {
		return err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "set_status", username, fmt.Sprintf("Status of %s changed to %s", username, req.Status),
		func(ctx context.Context) error { return s.api.SetStatus(ctx, username, req.Status) })
}

func (s *Service) SetRoles(ctx context.Context, username string, req models.RolesRequest) error {
	username, err := requireUsername(username)
	if err != nil {
		return err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "set_roles", username, fmt.Sprintf("Roles of %s updated successfully", username),
		func(ctx context.Context) error { return s.api.SetRoles(ctx, username, req.Roles) })
}

// CheckUsername and CheckEmail make the service the form engine's
// availability checker.
func (s *Service) CheckUsername(ctx context.Context, value string) (adminapi.Availability, error) {
	return s.api.CheckUsername(ctx, value)
}

func (s *Service) CheckEmail(ctx context.Context, value string) (adminapi.Availability, error) {
	return s.api.CheckEmail(ctx, value)
}
