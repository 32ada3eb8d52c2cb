package adminapi

import "time"

// Availability is the answer of the check-username and check-email endpoints.
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// AuditEntry is a single recorded administrative action.
type AuditEntry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditSearch filters GET /audit/search. Zero values are omitted from the query.
type AuditSearch struct {
	Username string
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	Size     int
}

// AuditSearchResult is a page of matching entries with the total match count.
type AuditSearchResult struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Size    int          `json:"size"`
}

// AuditStatistics aggregates audit activity over the retained window.
type AuditStatistics struct {
	TotalEvents    int64            `json:"totalEvents"`
	FailedEvents   int64            `json:"failedEvents"`
	UniqueUsers    int64            `json:"uniqueUsers"`
	EventsByAction map[string]int64 `json:"eventsByAction"`
}

// ActivitySummary is the per-user rollup of GET /audit/user/{username}/activity-summary.
type ActivitySummary struct {
	Username      string           `json:"username"`
	TotalActions  int64            `json:"totalActions"`
	FailedActions int64            `json:"failedActions"`
	LastActivity  *time.Time       `json:"lastActivity,omitempty"`
	ActionsByType map[string]int64 `json:"actionsByType"`
}
