package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestName(t *testing.T) {
	tests := []struct {
		address   string
		wantFirst string
		wantLast  string
		wantOK    bool
	}{
		{"jane.doe@example.com", "Jane", "Doe", true},
		{"JOHN_SMITH@example.com", "John", "Smith", true},
		{"mary-ann.lee+work@example.com", "Mary", "Lee", true},
		{"anna.m.berg@example.com", "Anna", "Berg", true},
		{"admin@example.com", "", "", false},
		{"j.d@example.com", "", "", false},
		{"user123.ops@example.com", "", "", false},
		{"no-at-sign", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			first, last, ok := SuggestName(tt.address)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}
