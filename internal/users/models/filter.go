package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.einride.tech/aip/ordering"

	dErrors "console/pkg/domain-errors"
)

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SortField names a sortable user column.
type SortField string

const (
	SortUsername    SortField = "username"
	SortEmail       SortField = "email"
	SortFirstName   SortField = "firstName"
	SortLastName    SortField = "lastName"
	SortCountry     SortField = "country"
	SortPhoneNumber SortField = "phoneNumber"
	SortStatus      SortField = "status"
	SortCreatedAt   SortField = "createdAt"
)

// sortAliases maps every accepted spelling (camelCase and AIP snake_case) to
// its field.
var sortAliases = map[string]SortField{
	"username":     SortUsername,
	"email":        SortEmail,
	"firstName":    SortFirstName,
	"first_name":   SortFirstName,
	"lastName":     SortLastName,
	"last_name":    SortLastName,
	"country":      SortCountry,
	"phoneNumber":  SortPhoneNumber,
	"phone_number": SortPhoneNumber,
	"status":       SortStatus,
	"createdAt":    SortCreatedAt,
	"created_at":   SortCreatedAt,
}

func ParseSortField(raw string) (SortField, bool) {
	f, ok := sortAliases[strings.TrimSpace(raw)]
	return f, ok
}

const (
	DefaultRowsPerPage = 10
	MaxRowsPerPage     = 100
)

// Filter is the transient list view state: search, status filter, ordering
// and page window.
type Filter struct {
	Search      string    `json:"search"`
	Status      Status    `json:"status,omitempty"`
	OrderBy     SortField `json:"orderBy,omitempty"`
	Order       Order     `json:"order"`
	Page        int       `json:"page"`
	RowsPerPage int       `json:"rowsPerPage"`
}

// DefaultFilter is the state a cleared view starts from.
func DefaultFilter() Filter {
	return Filter{
		OrderBy:     SortUsername,
		Order:       OrderAsc,
		Page:        0,
		RowsPerPage: DefaultRowsPerPage,
	}
}

// Reset returns the default filter, keeping nothing from f.
func (f Filter) Reset() Filter {
	return DefaultFilter()
}

// SortBy applies a column-header click: the active column toggles direction,
// any other column becomes active in ascending order. Either way the view
// returns to the first page.
func (f Filter) SortBy(field SortField) Filter {
	if f.OrderBy == field {
		if f.Order == OrderAsc {
			f.Order = OrderDesc
		} else {
			f.Order = OrderAsc
		}
	} else {
		f.OrderBy = field
		f.Order = OrderAsc
	}
	f.Page = 0
	return f
}

// Descending reports whether the order is reversed.
func (f Filter) Descending() bool {
	return f.Order == OrderDesc
}

// ParseFilter reads list view state from query parameters:
// search, status, orderBy, order, page, rowsPerPage, plus the AIP-132 style
// order_by ("created_at desc") and sort (a header click applied last).
func ParseFilter(q url.Values) (Filter, error) {
	f := DefaultFilter()
	f.Search = strings.TrimSpace(q.Get("search"))

	status, ok := ParseStatus(q.Get("status"))
	if !ok {
		return Filter{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown status %q", q.Get("status")))
	}
	f.Status = status

	if raw := q.Get("orderBy"); raw != "" {
		field, ok := ParseSortField(raw)
		if !ok {
			return Filter{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("cannot sort by %q", raw))
		}
		f.OrderBy = field
	}
	if raw := q.Get("order"); raw != "" {
		switch Order(strings.ToLower(raw)) {
		case OrderAsc:
			f.Order = OrderAsc
		case OrderDesc:
			f.Order = OrderDesc
		default:
			return Filter{}, dErrors.New(dErrors.CodeBadRequest, "order must be 'asc' or 'desc'")
		}
	}
	if raw := q.Get("order_by"); raw != "" {
		field, order, err := parseOrderBy(raw)
		if err != nil {
			return Filter{}, err
		}
		f.OrderBy, f.Order = field, order
	}

	page, err := intParam(q, "page", 0)
	if err != nil {
		return Filter{}, err
	}
	if page < 0 {
		return Filter{}, dErrors.New(dErrors.CodeBadRequest, "page must not be negative")
	}
	f.Page = page

	rows, err := intParam(q, "rowsPerPage", DefaultRowsPerPage)
	if err != nil {
		return Filter{}, err
	}
	f.RowsPerPage = clampRows(rows)

	if raw := q.Get("sort"); raw != "" {
		field, ok := ParseSortField(raw)
		if !ok {
			return Filter{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("cannot sort by %q", raw))
		}
		f = f.SortBy(field)
	}
	return f, nil
}

func parseOrderBy(raw string) (SortField, Order, error) {
	var ob ordering.OrderBy
	if err := ob.UnmarshalString(raw); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid order_by")
	}
	if len(ob.Fields) != 1 {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "order_by must name exactly one field")
	}
	paths := make([]string, 0, len(sortAliases))
	for alias := range sortAliases {
		paths = append(paths, alias)
	}
	if err := ob.ValidateForPaths(paths...); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid order_by")
	}
	field := sortAliases[ob.Fields[0].Path]
	if ob.Fields[0].Desc {
		return field, OrderDesc, nil
	}
	return field, OrderAsc, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s must be an integer", key))
	}
	return v, nil
}

func clampRows(rows int) int {
	if rows <= 0 {
		return DefaultRowsPerPage
	}
	if rows > MaxRowsPerPage {
		return MaxRowsPerPage
	}
	return rows
}
