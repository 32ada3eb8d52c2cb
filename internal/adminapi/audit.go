package adminapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

func pageQuery(page, size int) url.Values {
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
}

// RecentAudit returns one page of the most recent entries. The API does not
// report a total for this view.
func (c *Client) RecentAudit(ctx context.Context, page, size int) ([]AuditEntry, error) {
	var entries []AuditEntry
	if err := c.do(ctx, "audit_recent", http.MethodGet, "/audit/recent", pageQuery(page, size), nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

func (c *Client) SearchAudit(ctx context.Context, s AuditSearch) (*AuditSearchResult, error) {
	q := pageQuery(s.Page, s.Size)
	if s.Username != "" {
		q.Set("username", s.Username)
	}
	if s.Action != "" {
		q.Set("action", s.Action)
	}
	if !s.From.IsZero() {
		q.Set("from", s.From.UTC().Format(time.RFC3339))
	}
	if !s.To.IsZero() {
		q.Set("to", s.To.UTC().Format(time.RFC3339))
	}
	var out AuditSearchResult
	if err := c.do(ctx, "audit_search", http.MethodGet, "/audit/search", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Entries == nil {
		out.Entries = []AuditEntry{}
	}
	return &out, nil
}

func (c *Client) AuditStatistics(ctx context.Context) (*AuditStatistics, error) {
	var out AuditStatistics
	if err := c.do(ctx, "audit_statistics", http.MethodGet, "/audit/statistics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserActivity(ctx context.Context, username string) (*ActivitySummary, error) {
	var out ActivitySummary
	path := "/audit/user/" + url.PathEscape(username) + "/activity-summary"
	if err := c.do(ctx, "audit_user_activity", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
