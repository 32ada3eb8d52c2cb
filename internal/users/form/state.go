// Package form is the validation engine behind the user creation dialog.
//
// Name and password fields are validated synchronously on every edit.
// Username and email are validated locally first and, when locally valid,
// checked for availability against the admin API after a debounce delay.
// Each async field carries a sequence number so a response for an older edit
// can never overwrite the result of a newer one.
package form

import (
	"fmt"
	"strings"

	"console/internal/users/models"
)

// Field names a form input.
type Field string

const (
	FieldUsername        Field = "username"
	FieldEmail           Field = "email"
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
	// Country and status are carried into the create request but have no
	// validation slot.
	FieldCountry Field = "country"
	FieldStatus  Field = "status"
)

// ValidatedFields lists the fields that own a slot in ValidationState, in
// display order.
var ValidatedFields = []Field{
	FieldUsername, FieldEmail, FieldFirstName, FieldLastName, FieldPassword, FieldConfirmPassword,
}

// Status is the lifecycle position of one field's validation.
type Status int

const (
	StatusUntouched Status = iota
	StatusCheckingLocal
	StatusLocallyInvalid
	StatusCheckingRemote
	StatusValid
	StatusRemoteInvalid
	StatusCheckFailed
)

var statusNames = [...]string{
	StatusUntouched:      "untouched",
	StatusCheckingLocal:  "checking_local",
	StatusLocallyInvalid: "locally_invalid",
	StatusCheckingRemote: "checking_remote",
	StatusValid:          "valid",
	StatusRemoteInvalid:  "remote_invalid",
	StatusCheckFailed:    "check_failed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown validation status %q", b)
}

// Pending reports whether a result for the current value is still outstanding.
func (s Status) Pending() bool {
	return s == StatusCheckingLocal || s == StatusCheckingRemote
}

// FieldResult is what the form shows next to one input.
type FieldResult struct {
	Status  Status `json:"status"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func untouched() FieldResult {
	return FieldResult{Status: StatusUntouched, Valid: true}
}

func valid() FieldResult {
	return FieldResult{Status: StatusValid, Valid: true}
}

func invalid(status Status, message string) FieldResult {
	return FieldResult{Status: status, Valid: false, Message: message}
}

// ValidationState holds one result per validated field.
type ValidationState struct {
	Username        FieldResult `json:"username"`
	Email           FieldResult `json:"email"`
	FirstName       FieldResult `json:"firstName"`
	LastName        FieldResult `json:"lastName"`
	Password        FieldResult `json:"password"`
	ConfirmPassword FieldResult `json:"confirmPassword"`
}

func newValidationState() ValidationState {
	return ValidationState{
		Username:        untouched(),
		Email:           untouched(),
		FirstName:       untouched(),
		LastName:        untouched(),
		Password:        untouched(),
		ConfirmPassword: untouched(),
	}
}

// Get returns the result for field; ok is false for fields without a slot.
func (s ValidationState) Get(field Field) (FieldResult, bool) {
	if p := s.slot(field); p != nil {
		return *p, true
	}
	return FieldResult{}, false
}

func (s *ValidationState) slot(field Field) *FieldResult {
	switch field {
	case FieldUsername:
		return &s.Username
	case FieldEmail:
		return &s.Email
	case FieldFirstName:
		return &s.FirstName
	case FieldLastName:
		return &s.LastName
	case FieldPassword:
		return &s.Password
	case FieldConfirmPassword:
		return &s.ConfirmPassword
	}
	return nil
}

func (s *ValidationState) set(field Field, r FieldResult) {
	if p := s.slot(field); p != nil {
		*p = r
	}
}

// Invalid lists fields that are invalid or still awaiting a result.
func (s ValidationState) Invalid() []Field {
	var out []Field
	for _, f := range ValidatedFields {
		r, _ := s.Get(f)
		if !r.Valid || r.Status.Pending() {
			out = append(out, f)
		}
	}
	return out
}

// AllValid reports whether every field is valid and settled.
func (s ValidationState) AllValid() bool {
	return len(s.Invalid()) == 0
}

// Values are the raw inputs of the form.
type Values struct {
	Username        string        `json:"username"`
	Email           string        `json:"email"`
	FirstName       string        `json:"firstName"`
	LastName        string        `json:"lastName"`
	Password        string        `json:"-"`
	ConfirmPassword string        `json:"-"`
	Country         string        `json:"country,omitempty"`
	Status          models.Status `json:"status,omitempty"`
}

// Request builds the create payload from the current values.
func (v Values) Request() models.CreateUserRequest {
	return models.CreateUserRequest{
		Username:  strings.TrimSpace(v.Username),
		Email:     strings.TrimSpace(v.Email),
		Password:  v.Password,
		FirstName: strings.TrimSpace(v.FirstName),
		LastName:  strings.TrimSpace(v.LastName),
		Country:   strings.TrimSpace(v.Country),
		Status:    v.Status,
	}
}

// SubmissionError blocks a submit. State is the snapshot that caused it.
type SubmissionError struct {
	State  ValidationState
	Fields []Field
}

func (e *SubmissionError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return "form has invalid fields: " + strings.Join(names, ", ")
}
