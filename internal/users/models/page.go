package models

import "time"

// UserPage is one rendered window of the derived user list.
type UserPage struct {
	Users       []User `json:"users"`
	Total       int    `json:"total"`
	Page        int    `json:"page"`
	RowsPerPage int    `json:"rowsPerPage"`
	Filter      Filter `json:"filter"`
}

// UserList is a cached snapshot of the full user list.
type UserList struct {
	Users     []User    `json:"users"`
	FetchedAt time.Time `json:"fetchedAt"`
}
