package models

import (
	"strings"

	"console/internal/users/rules"
	dErrors "console/pkg/domain-errors"
)

// CreateUserRequest is the body of POST /users on the admin API.
type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Country   string `json:"country,omitempty"`
	Status    Status `json:"status"`
}

// UpdateUserRequest is the body of PUT /users/{username}.
type UpdateUserRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Country     string `json:"country,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

func (r *UpdateUserRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Country = strings.TrimSpace(r.Country)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *UpdateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Country) > 100 {
		return dErrors.New(dErrors.CodeValidation, "country must be 100 characters or less")
	}
	if len(r.PhoneNumber) > 32 {
		return dErrors.New(dErrors.CodeValidation, "phone number must be 32 characters or less")
	}
	if err := rules.FirstName(r.FirstName); err != nil {
		return err
	}
	if err := rules.LastName(r.LastName); err != nil {
		return err
	}
	return rules.Email(r.Email)
}

// StatusRequest is the body of PATCH /users/{username}/status.
type StatusRequest struct {
	Status Status `json:"status"`
}

func (r *StatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status, _ = ParseStatus(string(r.Status))
}

func (r *StatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be one of ACTIVE, INACTIVE, BLOCKED, PENDING")
	}
	return nil
}

// RolesRequest is the body of PATCH /users/{username}/roles. It replaces the
// full role set.
type RolesRequest struct {
	Roles []string `json:"roles"`
}

func (r *RolesRequest) Normalize() {
	if r == nil {
		return
	}
	r.Roles = NormalizeRoles(r.Roles)
}

func (r *RolesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Roles) > 20 {
		return dErrors.New(dErrors.CodeValidation, "a user may carry at most 20 roles")
	}
	for _, role := range r.Roles {
		if err := rules.Role(role); err != nil {
			return err
		}
	}
	return nil
}
