package audit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"console/internal/adminapi"
	dErrors "console/pkg/domain-errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one window of audit entries. The recent view has no known total:
// TotalKnown is false there and HasNext is inferred from a full page.
type Page struct {
	Entries    []adminapi.AuditEntry `json:"entries"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
	Total      int                   `json:"total,omitempty"`
	TotalKnown bool                  `json:"totalKnown"`
	HasNext    bool                  `json:"hasNext"`
}

// Window selects a page of the log.
type Window struct {
	Page int
	Size int
}

// SearchQuery narrows the log by actor, action and time range.
type SearchQuery struct {
	Window
	Username string
	Action   string
	From     time.Time
	To       time.Time
}

// Validate clamps the size into range and rejects a negative page.
func (w *Window) Validate() error {
	if w.Page < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "page must not be negative")
	}
	switch {
	case w.Size <= 0:
		w.Size = DefaultPageSize
	case w.Size > MaxPageSize:
		w.Size = MaxPageSize
	}
	return nil
}

func (q *SearchQuery) Validate() error {
	if err := q.Window.Validate(); err != nil {
		return err
	}
	q.Username = strings.TrimSpace(q.Username)
	q.Action = strings.ToUpper(strings.TrimSpace(q.Action))
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return dErrors.New(dErrors.CodeBadRequest, "from must not be after to")
	}
	return nil
}

// ParseWindow reads page and size query parameters.
func ParseWindow(q url.Values) (Window, error) {
	page, err := intParam(q, "page")
	if err != nil {
		return Window{}, err
	}
	size, err := intParam(q, "size")
	if err != nil {
		return Window{}, err
	}
	w := Window{Page: page, Size: size}
	return w, w.Validate()
}

// ParseSearch reads a search query. from and to accept RFC 3339 timestamps or
// plain dates; a plain "to" date covers the whole day.
func ParseSearch(q url.Values) (SearchQuery, error) {
	w, err := ParseWindow(q)
	if err != nil {
		return SearchQuery{}, err
	}
	from, err := timeParam(q, "from", false)
	if err != nil {
		return SearchQuery{}, err
	}
	to, err := timeParam(q, "to", true)
	if err != nil {
		return SearchQuery{}, err
	}
	sq := SearchQuery{
		Window:   w,
		Username: q.Get("username"),
		Action:   q.Get("action"),
		From:     from,
		To:       to,
	}
	return sq, sq.Validate()
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

func timeParam(q url.Values, key string, endOfDay bool) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s must be an RFC 3339 timestamp or a date", key))
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Second), nil
	}
	return day, nil
}
