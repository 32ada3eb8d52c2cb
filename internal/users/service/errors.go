package service

import (
	"errors"
	"fmt"

	"console/internal/adminapi"
	dErrors "console/pkg/domain-errors"
	"console/pkg/platform/sentinel"
)

// MutationError is a rejected create, update, delete, status or roles change.
// Message is the admin API's text, shown to the operator verbatim.
type MutationError struct {
	Op       string
	Username string
	Message  string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Username, e.Message)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// FetchError is a failed load of the user list. The previously cached list,
// if any, is untouched.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return "fetch users: " + e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ToDomainError maps service failures onto the console error taxonomy so
// handlers can render them.
func ToDomainError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	var mErr *MutationError
	if errors.As(err, &mErr) {
		return dErrors.Wrap(err, codeOf(mErr.Err), mErr.Message)
	}
	var fErr *FetchError
	if errors.As(err, &fErr) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, fErr.Message)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}

func codeOf(err error) dErrors.Code {
	var apiErr *adminapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 0 {
			return dErrors.CodeUnavailable
		}
		return apiErr.Code()
	}
	return dErrors.CodeUnavailable
}
