package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "console/pkg/domain-errors"
)

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		message string
	}{
		{"empty", "", "Password is required"},
		{"too short", "ab", "Password must be between 6 and 40 characters"},
		{"too long", strings.Repeat("x", 41), "Password must be between 6 and 40 characters"},
		{"lower bound", "abcdef", ""},
		{"upper bound", strings.Repeat("x", 40), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Password(tt.value)
			assert.Equal(t, tt.message, Message(err))
			if tt.message != "" {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			}
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "First name is required", Message(FirstName("   ")))
	assert.Equal(t, "Last name must be between 2 and 50 characters", Message(LastName("x")))
	assert.NoError(t, FirstName("Amy"))
	// length is counted in characters, not bytes
	assert.NoError(t, LastName("Ñú"))
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "Username is required", Message(Username("")))
	assert.Equal(t, "Username must be between 3 and 20 characters", Message(Username("ab")))
	assert.Equal(t, "Username may only contain letters, numbers, dots, underscores and hyphens",
		Message(Username("amy smith")))
	assert.NoError(t, Username("amy.smith_2"))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "Email is required", Message(Email("")))
	assert.Equal(t, "Email must be a valid email address", Message(Email("not-an-email")))
	assert.Equal(t, "Email must be 100 characters or less",
		Message(Email(strings.Repeat("a", 95)+"@x.com")))
	assert.NoError(t, Email("a@x.com"))
}

func TestConfirmPassword(t *testing.T) {
	assert.Equal(t, "Passwords do not match", Message(ConfirmPassword("secret1", "secret2")))
	assert.Equal(t, "Please confirm the password", Message(ConfirmPassword("secret1", "")))
	assert.NoError(t, ConfirmPassword("secret1", "secret1"))
}
