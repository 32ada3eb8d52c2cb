package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"console/internal/adminapi"
	dErrors "console/pkg/domain-errors"
	"console/pkg/requestcontext"
)

// API is the read-only slice of the admin API behind the audit views.
type API interface {
	RecentAudit(ctx context.Context, page, size int) ([]adminapi.AuditEntry, error)
	SearchAudit(ctx context.Context, s adminapi.AuditSearch) (*adminapi.AuditSearchResult, error)
	AuditStatistics(ctx context.Context) (*adminapi.AuditStatistics, error)
	UserActivity(ctx context.Context, username string) (*adminapi.ActivitySummary, error)
}

// Service serves the audit log views. It holds no state; every view is read
// through to the admin API.
type Service struct {
	api    API
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, opts ...Option) (*Service, error) {
	if api == nil {
		return nil, errors.New("audit api is required")
	}
	s := &Service{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recent returns the newest entries first.
func (s *Service) Recent(ctx context.Context, w Window) (*Page, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.api.RecentAudit(ctx, w.Page, w.Size)
	if err != nil {
		return nil, s.fail(ctx, "recent", err)
	}
	return &Page{
		Entries: entries,
		Page:    w.Page,
		Size:    w.Size,
		HasNext: len(entries) == w.Size,
	}, nil
}

func (s *Service) Search(ctx context.Context, q SearchQuery) (*Page, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	res, err := s.api.SearchAudit(ctx, adminapi.AuditSearch{
		Username: q.Username,
		Action:   q.Action,
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		Size:     q.Size,
	})
	if err != nil {
		return nil, s.fail(ctx, "search", err)
	}
	return &Page{
		Entries:    res.Entries,
		Page:       q.Page,
		Size:       q.Size,
		Total:      res.Total,
		TotalKnown: true,
		HasNext:    (q.Page+1)*q.Size < res.Total,
	}, nil
}

func (s *Service) Statistics(ctx context.Context) (*adminapi.AuditStatistics, error) {
	stats, err := s.api.AuditStatistics(ctx)
	if err != nil {
		return nil, s.fail(ctx, "statistics", err)
	}
	return stats, nil
}

func (s *Service) Activity(ctx context.Context, username string) (*adminapi.ActivitySummary, error) {
	// existing accounts may predate the creation rules; only require a name
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	summary, err := s.api.UserActivity(ctx, username)
	if err != nil {
		return nil, s.fail(ctx, "activity", err)
	}
	return summary, nil
}

func (s *Service) fail(ctx context.Context, view string, err error) error {
	s.logger.WarnContext(ctx, "audit view failed",
		"request_id", requestcontext.RequestID(ctx),
		"view", view,
		"error", err,
	)
	code := dErrors.CodeUnavailable
	var apiErr *adminapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		code = apiErr.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = dErrors.CodeTimeout
	}
	return dErrors.Wrap(err, code, "Failed to load audit log: "+adminapi.Message(err))
}
