// Package listing derives the visible user list from the full cached list and
// the view's filter state. Every function here is pure: the source slice is
// never reordered or modified.
package listing

import (
	"cmp"
	"slices"
	"strings"

	"console/internal/users/models"
)

// Derive filters then stably sorts users. The result is a new slice.
func Derive(users []models.User, f models.Filter) []models.User {
	out := Filter(users, f)
	Sort(out, f.OrderBy, f.Descending())
	return out
}

// Filter keeps users matching the search text (case-insensitive substring of
// username or email) and the status filter. Empty criteria match everything,
// and source order is preserved.
func Filter(users []models.User, f models.Filter) []models.User {
	search := strings.ToLower(f.Search)
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if !matchesSearch(u, search) {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		out = append(out, u)
	}
	return out
}

func matchesSearch(u models.User, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Username), search) ||
		strings.Contains(strings.ToLower(u.Email), search)
}

// Sort orders users in place by field. Ties keep their relative order in both
// directions. Strings compare byte-wise, never by locale collation. An empty
// field leaves the order untouched.
func Sort(users []models.User, field models.SortField, desc bool) {
	compare := comparator(field)
	if compare == nil {
		return
	}
	slices.SortStableFunc(users, func(a, b models.User) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func comparator(field models.SortField) func(a, b models.User) int {
	switch field {
	case models.SortUsername:
		return byString(func(u models.User) string { return u.Username })
	case models.SortEmail:
		return byString(func(u models.User) string { return u.Email })
	case models.SortFirstName:
		return byString(func(u models.User) string { return u.FirstName })
	case models.SortLastName:
		return byString(func(u models.User) string { return u.LastName })
	case models.SortCountry:
		return byString(func(u models.User) string { return u.Country })
	case models.SortPhoneNumber:
		return byString(func(u models.User) string { return u.PhoneNumber })
	case models.SortStatus:
		return byString(func(u models.User) string { return string(u.Status) })
	case models.SortCreatedAt:
		return func(a, b models.User) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
	return nil
}

func byString(key func(models.User) string) func(a, b models.User) int {
	return func(a, b models.User) int {
		return cmp.Compare(key(a), key(b))
	}
}

// Paginate returns the window [page*size, page*size+size). Out-of-range pages,
// negative pages and non-positive sizes yield an empty slice.
func Paginate(users []models.User, page, size int) []models.User {
	if page < 0 || size <= 0 || len(users) == 0 {
		return []models.User{}
	}
	// compare before multiplying so huge pages cannot overflow into range
	if page > (len(users)-1)/size {
		return []models.User{}
	}
	start := page * size
	end := min(start+size, len(users))
	return slices.Clone(users[start:end])
}

// Page runs the full pipeline and wraps the window with its totals.
func Page(users []models.User, f models.Filter) models.UserPage {
	derived := Derive(users, f)
	return models.UserPage{
		Users:       Paginate(derived, f.Page, f.RowsPerPage),
		Total:       len(derived),
		Page:        f.Page,
		RowsPerPage: f.RowsPerPage,
		Filter:      f,
	}
}
