package email

import (
	"strings"
	"unicode"
)

// SuggestName derives a first and last name from an address's local part:
// "jane.doe@x.io" gives ("Jane", "Doe"). A "+tag" is ignored. ok is false when the local part has
// fewer than two name-like segments.
func SuggestName(address string) (first, last string, ok bool) {
	local, _, found := strings.Cut(address, "@")
	if !found || local == "" {
		return "", "", false
	}
	local, _, _ = strings.Cut(local, "+")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	names := parts[:0]
	for _, p := range parts {
		if isName(p) {
			names = append(names, p)
		}
	}
	if len(names) < 2 {
		return "", "", false
	}
	return capitalize(names[0]), capitalize(names[len(names)-1]), true
}

func isName(s string) bool {
	if len([]rune(s)) < 2 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
