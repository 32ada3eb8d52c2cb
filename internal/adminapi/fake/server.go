// Package fake is an in-memory stand-in for the admin REST API. It serves the
// same routes and JSON shapes, records an audit trail for every mutation, and
// lets tests inject failures per operation.
package fake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"console/internal/adminapi"
	"console/internal/users/models"
	"console/pkg/platform/httputil"
)

// Operation names accepted by Fail and Calls.
const (
	OpListUsers     = "list_users"
	OpCreateUser    = "create_user"
	OpUpdateUser    = "update_user"
	OpDeleteUser    = "delete_user"
	OpSetStatus     = "set_status"
	OpSetRoles      = "set_roles"
	OpCheckUsername = "check_username"
	OpCheckEmail    = "check_email"
	OpAuditRecent   = "audit_recent"
	OpAuditSearch   = "audit_search"
	OpAuditStats    = "audit_statistics"
	OpUserActivity  = "audit_user_activity"
)

type failure struct {
	status  int
	message string
}

// Server holds the fake API state. The zero value is not usable; call New.
type Server struct {
	mu       sync.Mutex
	users    []models.User
	audit    []adminapi.AuditEntry
	failures map[string]failure
	calls    map[string]int
	queries  map[string][]string
	token    string
	now      func() time.Time
}

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithUsers seeds the user list.
func WithUsers(users ...models.User) Option {
	return func(s *Server) {
		s.users = append(s.users, users...)
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		failures: make(map[string]failure),
		calls:    make(map[string]int),
		queries:  make(map[string][]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fail makes every subsequent call of op answer status with message.
func (s *Server) Fail(op string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: status, message: message}
}

// Recover clears injected failures for op, or for all operations when op is empty.
func (s *Server) Recover(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op == "" {
		clear(s.failures)
		return
	}
	delete(s.failures, op)
}

// Calls reports how many requests reached op, failed ones included.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Queries returns the "value" parameters seen by op in arrival order.
func (s *Server) Queries(op string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queries[op])
}

// Users returns a snapshot of the stored users.
func (s *Server) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users)
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requireToken)
	r.Get("/users", s.handle(OpListUsers, s.listUsers))
	r.Post("/users", s.handle(OpCreateUser, s.createUser))
	r.Get("/users/check-username", s.handle(OpCheckUsername, s.checkUsername))
	r.Get("/users/check-email", s.handle(OpCheckEmail, s.checkEmail))
	r.Put("/users/{username}", s.handle(OpUpdateUser, s.updateUser))
	r.Delete("/users/{username}", s.handle(OpDeleteUser, s.deleteUser))
	r.Patch("/users/{username}/status", s.handle(OpSetStatus, s.setStatus))
	r.Patch("/users/{username}/roles", s.handle(OpSetRoles, s.setRoles))
	r.Get("/audit/recent", s.handle(OpAuditRecent, s.recentAudit))
	r.Get("/audit/search", s.handle(OpAuditSearch, s.searchAudit))
	r.Get("/audit/statistics", s.handle(OpAuditStats, s.auditStatistics))
	r.Get("/audit/user/{username}/activity-summary", s.handle(OpUserActivity, s.userActivity))
	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handle counts the call, applies injected failures, then runs fn under the lock.
func (s *Server) handle(op string, fn func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[op]++
		if v := r.URL.Query().Get("value"); v != "" {
			s.queries[op] = append(s.queries[op], v)
		}
		if f, ok := s.failures[op]; ok {
			writeMessage(w, f.status, f.message)
			return
		}
		fn(w, r)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, map[string]string{"message": message})
}

func (s *Server) find(username string) int {
	return slices.IndexFunc(s.users, func(u models.User) bool {
		return strings.EqualFold(u.Username, username)
	})
}

func (s *Server) emailTaken(email, except string) bool {
	return slices.ContainsFunc(s.users, func(u models.User) bool {
		return strings.EqualFold(u.Email, email) && !strings.EqualFold(u.Username, except)
	})
}

// record appends an audit entry attributed to the X-Admin-User header, or
// "admin" when absent.
func (s *Server) record(r *http.Request, action, resource string, success bool) {
	actor := r.Header.Get("X-Admin-User")
	if actor == "" {
		actor = "admin"
	}
	s.audit = append(s.audit, adminapi.AuditEntry{
		ID:        uuid.NewString(),
		Username:  actor,
		Action:    action,
		Resource:  resource,
		IPAddress: r.RemoteAddr,
		Success:   success,
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if s.find(req.Username) >= 0 {
		s.record(r, "CREATE_USER", req.Username, false)
		writeMessage(w, http.StatusConflict, fmt.Sprintf("User %s already exists", req.Username))
		return
	}
	if s.emailTaken(req.Email, "") {
		s.record(r, "CREATE_USER", req.Username, false)
		writeMessage(w, http.StatusConflict, "Email is already in use")
		return
	}
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Country:   req.Country,
		Status:    status,
		Roles:     []string{"user"},
		CreatedAt: s.now().UTC(),
	}
	s.users = append(s.users, user)
	s.record(r, "CREATE_USER", user.Username, true)
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	username := httputil.PathParam(r, "username")
	i := s.find(username)
	if i < 0 {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("User %s not found", username))
		return
	}
	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if s.emailTaken(req.Email, username) {
		s.record(r, "UPDATE_USER", username, false)
		writeMessage(w, http.StatusConflict, "Email is already in use")
		return
	}
	u := &s.users[i]
	u.Email, u.FirstName, u.LastName = req.Email, req.FirstName, req.LastName
	u.Country, u.PhoneNumber = req.Country, req.PhoneNumber
	s.record(r, "UPDATE_USER", username, true)
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	username := httputil.PathParam(r, "username")
	i := s.find(username)
	if i < 0 {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("User %s not found", username))
		return
	}
	s.users = slices.Delete(s.users, i, i+1)
	s.record(r, "DELETE_USER", username, true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	username := httputil.PathParam(r, "username")
	i := s.find(username)
	if i < 0 {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("User %s not found", username))
		return
	}
	var req models.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.IsValid() {
		writeMessage(w, http.StatusBadRequest, "Invalid status")
		return
	}
	s.users[i].Status = req.Status
	s.record(r, "CHANGE_STATUS", username, true)
	httputil.WriteJSON(w, http.StatusOK, s.users[i])
}

func (s *Server) setRoles(w http.ResponseWriter, r *http.Request) {
	username := httputil.PathParam(r, "username")
	i := s.find(username)
	if i < 0 {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("User %s not found", username))
		return
	}
	var req models.RolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	s.users[i].Roles = models.NormalizeRoles(req.Roles)
	s.record(r, "CHANGE_ROLES", username, true)
	httputil.WriteJSON(w, http.StatusOK, s.users[i])
}

func (s *Server) checkUsername(w http.ResponseWriter, r *http.Request) {
	if s.find(r.URL.Query().Get("value")) >= 0 {
		httputil.WriteJSON(w, http.StatusOK, adminapi.Availability{Available: false, Message: "Username is already taken"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, adminapi.Availability{Available: true})
}

func (s *Server) checkEmail(w http.ResponseWriter, r *http.Request) {
	if s.emailTaken(r.URL.Query().Get("value"), "") {
		httputil.WriteJSON(w, http.StatusOK, adminapi.Availability{Available: false, Message: "Email is already in use"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, adminapi.Availability{Available: true})
}

func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}
	return max(page, 0), size
}

func window(entries []adminapi.AuditEntry, page, size int) []adminapi.AuditEntry {
	start := page * size
	if start >= len(entries) {
		return []adminapi.AuditEntry{}
	}
	return entries[start:min(start+size, len(entries))]
}

// newestFirst returns the audit log in reverse chronological order.
func (s *Server) newestFirst() []adminapi.AuditEntry {
	out := slices.Clone(s.audit)
	slices.Reverse(out)
	return out
}

func (s *Server) recentAudit(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	httputil.WriteJSON(w, http.StatusOK, window(s.newestFirst(), page, size))
}

func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		from, _ = time.Parse(time.RFC3339, v)
	}
	if v := q.Get("to"); v != "" {
		to, _ = time.Parse(time.RFC3339, v)
	}
	matches := make([]adminapi.AuditEntry, 0)
	for _, e := range s.newestFirst() {
		if u := q.Get("username"); u != "" && !strings.EqualFold(e.Username, u) {
			continue
		}
		if a := q.Get("action"); a != "" && !strings.EqualFold(e.Action, a) {
			continue
		}
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		matches = append(matches, e)
	}
	page, size := pageParams(r)
	httputil.WriteJSON(w, http.StatusOK, adminapi.AuditSearchResult{
		Entries: window(matches, page, size),
		Total:   len(matches),
		Page:    page,
		Size:    size,
	})
}

func (s *Server) auditStatistics(w http.ResponseWriter, _ *http.Request) {
	stats := adminapi.AuditStatistics{EventsByAction: make(map[string]int64)}
	users := make(map[string]struct{})
	for _, e := range s.audit {
		stats.TotalEvents++
		if !e.Success {
			stats.FailedEvents++
		}
		stats.EventsByAction[e.Action]++
		users[e.Username] = struct{}{}
	}
	stats.UniqueUsers = int64(len(users))
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) userActivity(w http.ResponseWriter, r *http.Request) {
	username := httputil.PathParam(r, "username")
	summary := adminapi.ActivitySummary{Username: username, ActionsByType: make(map[string]int64)}
	for _, e := range s.audit {
		if !strings.EqualFold(e.Username, username) {
			continue
		}
		summary.TotalActions++
		if !e.Success {
			summary.FailedActions++
		}
		summary.ActionsByType[e.Action]++
		if summary.LastActivity == nil || e.Timestamp.After(*summary.LastActivity) {
			ts := e.Timestamp
			summary.LastActivity = &ts
		}
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
