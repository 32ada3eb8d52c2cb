package adminapi

import (
	"errors"
	"fmt"
	"net/http"

	dErrors "console/pkg/domain-errors"
	"console/pkg/platform/sentinel"
)

// ErrCircuitOpen is returned without contacting the API while the breaker is open.
var ErrCircuitOpen = fmt.Errorf("admin api circuit open: %w", sentinel.ErrUnavailable)

// APIError is a failed admin API call. Message is the API's own text when the
// error body carried one, so callers can show it verbatim.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Retryable  bool
	Underlying error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("admin api %s: %s: %v", e.Op, e.Message, e.Underlying)
	}
	return fmt.Sprintf("admin api %s [%d]: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Underlying
}

// Code maps the API status onto the console's error taxonomy.
func (e *APIError) Code() dErrors.Code {
	switch e.StatusCode {
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusConflict:
		return dErrors.CodeConflict
	case http.StatusUnauthorized:
		return dErrors.CodeUnauthorized
	case http.StatusForbidden:
		return dErrors.CodeForbidden
	case http.StatusGatewayTimeout:
		return dErrors.CodeTimeout
	}
	return dErrors.CodeForStatus(e.StatusCode)
}

func newStatusError(op string, status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{
		Op:         op,
		StatusCode: status,
		Message:    message,
		Retryable:  status >= http.StatusInternalServerError || status == http.StatusTooManyRequests,
	}
}

func newTransportError(op string, err error) *APIError {
	return &APIError{
		Op:         op,
		Message:    "admin api unreachable",
		Retryable:  true,
		Underlying: err,
	}
}

// IsRetryable reports whether repeating the call may succeed.
func IsRetryable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return errors.Is(err, sentinel.ErrUnavailable)
}

// StatusCode extracts the API status code, or 0 for transport failures.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// Message returns the text to show for a failed call.
func Message(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return "Admin API is temporarily unavailable"
	}
	return "Unexpected error"
}
