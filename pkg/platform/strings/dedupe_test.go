package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil stays nil", nil, nil},
		{"empty stays empty", []string{}, []string{}},
		{"role tags", []string{" Admin", "viewer", "ADMIN ", ""}, []string{"admin", "viewer"}},
		{"only blanks", []string{" ", "\t"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrimLower(tt.input))
		})
	}
}

func TestDedupeAndTrimKeepsCase(t *testing.T) {
	assert.Equal(t, []string{"Ops", "ops"}, DedupeAndTrim([]string{"Ops", " ops", "Ops "}))
}

func TestNormalizeCustom(t *testing.T) {
	got := Normalize([]string{"a-b", "A_B", "c"}, func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", "-")
	})
	assert.Equal(t, []string{"a-b", "c"}, got)
}
