package models

import (
	"strings"
	"time"

	pstrings "console/pkg/platform/strings"
)

// Status is the lifecycle status of a managed user.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusBlocked  Status = "BLOCKED"
	StatusPending  Status = "PENDING"
)

// Statuses lists the known statuses in display order.
var Statuses = []Status{StatusActive, StatusInactive, StatusBlocked, StatusPending}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusBlocked, StatusPending:
		return true
	}
	return false
}

// ParseStatus accepts any casing; the empty string is the "no status" value.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "" {
		return "", true
	}
	return s, s.IsValid()
}

// User is the console's read-through copy of a user owned by the admin API.
type User struct {
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Country     string    `json:"country,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Status      Status    `json:"status"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasRole reports whether the user carries role (case-insensitive).
func (u User) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range u.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// NormalizeRoles trims, lowercases and dedupes role tags, preserving order.
func NormalizeRoles(roles []string) []string {
	out := pstrings.DedupeAndTrimLower(roles)
	if out == nil {
		return []string{}
	}
	return out
}
