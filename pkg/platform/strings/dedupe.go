// Package strings holds small helpers for normalizing tag-like string lists.
package strings

import "strings"

// Normalize applies norm to every value, drops values that normalize to ""
// and keeps the first occurrence of each result.
func Normalize(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// DedupeAndTrim trims and dedupes, preserving order.
func DedupeAndTrim(values []string) []string {
	return Normalize(values, strings.TrimSpace)
}

// DedupeAndTrimLower dedupes case-insensitively; results are lowercase.
func DedupeAndTrimLower(values []string) []string {
	return Normalize(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}
