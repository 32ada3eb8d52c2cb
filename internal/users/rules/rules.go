// Package rules holds the field rules shared by the creation form engine and the
// update/status/roles request validators. Every rule returns nil or a
// validation-coded error whose message is shown inline next to the field.
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	dErrors "console/pkg/domain-errors"
)

const (
	NameMinLength     = 2
	NameMaxLength     = 50
	PasswordMinLength = 6
	PasswordMaxLength = 40
	UsernameMinLength = 3
	UsernameMaxLength = 20
	EmailMaxLength    = 100
	RoleMaxLength     = 50
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func invalid(format string, args ...any) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf(format, args...))
}

// Name validates a required person-name field such as "First name".
func Name(label, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return invalid("%s is required", label)
	}
	if n := utf8.RuneCountInString(value); n < NameMinLength || n > NameMaxLength {
		return invalid("%s must be between %d and %d characters", label, NameMinLength, NameMaxLength)
	}
	return nil
}

func FirstName(value string) error { return Name("First name", value) }

func LastName(value string) error { return Name("Last name", value) }

// Password checks presence and length only; strength policy belongs to the API.
func Password(value string) error {
	if value == "" {
		return invalid("Password is required")
	}
	if n := utf8.RuneCountInString(value); n < PasswordMinLength || n > PasswordMaxLength {
		return invalid("Password must be between %d and %d characters", PasswordMinLength, PasswordMaxLength)
	}
	return nil
}

func ConfirmPassword(password, confirm string) error {
	if confirm == "" {
		return invalid("Please confirm the password")
	}
	if password != confirm {
		return invalid("Passwords do not match")
	}
	return nil
}

// Username is the local half of username validation; availability is remote.
func Username(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return invalid("Username is required")
	}
	if n := utf8.RuneCountInString(value); n < UsernameMinLength || n > UsernameMaxLength {
		return invalid("Username must be between %d and %d characters", UsernameMinLength, UsernameMaxLength)
	}
	if !usernamePattern.MatchString(value) {
		return invalid("Username may only contain letters, numbers, dots, underscores and hyphens")
	}
	return nil
}

// Email is the local half of email validation; availability is remote.
func Email(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return invalid("Email is required")
	}
	if utf8.RuneCountInString(value) > EmailMaxLength {
		return invalid("Email must be %d characters or less", EmailMaxLength)
	}
	if !govalidator.IsEmail(value) {
		return invalid("Email must be a valid email address")
	}
	return nil
}

// Role validates a single role tag after normalization.
func Role(value string) error {
	if value == "" {
		return invalid("Role must not be empty")
	}
	if utf8.RuneCountInString(value) > RoleMaxLength {
		return invalid("Role must be %d characters or less", RoleMaxLength)
	}
	return nil
}

// Message extracts the inline message of a rule error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := dErrors.As(err); ok {
		return de.Message
	}
	return err.Error()
}
