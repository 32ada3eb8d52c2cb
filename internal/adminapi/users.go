package adminapi

import (
	"context"
	"net/http"
	"net/url"

	"console/internal/users/models"
)

func userPath(username string, suffix string) string {
	return "/users/" + url.PathEscape(username) + suffix
}

// ListUsers fetches the full user list.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, "list_users", http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// CreateUser creates a user. The returned user is nil when the API answers
// without a body.
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var created *models.User
	if err := c.do(ctx, "create_user", http.MethodPost, "/users", nil, req, &created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) UpdateUser(ctx context.Context, username string, req models.UpdateUserRequest) error {
	return c.do(ctx, "update_user", http.MethodPut, userPath(username, ""), nil, req, nil)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, "delete_user", http.MethodDelete, userPath(username, ""), nil, nil, nil)
}

func (c *Client) SetStatus(ctx context.Context, username string, status models.Status) error {
	body := models.StatusRequest{Status: status}
	return c.do(ctx, "set_status", http.MethodPatch, userPath(username, "/status"), nil, body, nil)
}

func (c *Client) SetRoles(ctx context.Context, username string, roles []string) error {
	body := models.RolesRequest{Roles: roles}
	return c.do(ctx, "set_roles", http.MethodPatch, userPath(username, "/roles"), nil, body, nil)
}

// CheckUsername asks whether value is free to use as a username.
func (c *Client) CheckUsername(ctx context.Context, value string) (Availability, error) {
	return c.checkAvailability(ctx, "check_username", "/users/check-username", value)
}

// CheckEmail asks whether value is free to use as an email address.
func (c *Client) CheckEmail(ctx context.Context, value string) (Availability, error) {
	return c.checkAvailability(ctx, "check_email", "/users/check-email", value)
}

func (c *Client) checkAvailability(ctx context.Context, op, path, value string) (Availability, error) {
	var out Availability
	err := c.do(ctx, op, http.MethodGet, path, url.Values{"value": {value}}, nil, &out)
	return out, err
}
