package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"console/internal/users/form"
	"console/internal/users/models"
	"console/internal/users/service"
	dErrors "console/pkg/domain-errors"
	"console/pkg/platform/httputil"
	"console/pkg/requestcontext"
)

// Service defines the user list and mutation operations.
type Service interface {
	List(ctx context.Context, f models.Filter) (*models.UserPage, error)
	Refresh(ctx context.Context) (*models.UserList, error)
	Update(ctx context.Context, username string, req models.UpdateUserRequest) error
	Delete(ctx context.Context, username string) error
	SetStatus(ctx context.Context, username string, req models.StatusRequest) error
	SetRoles(ctx context.Context, username string, req models.RolesRequest) error
}

// Forms defines the creation form session operations.
type Forms interface {
	Open(ctx context.Context) (*service.FormSnapshot, error)
	Get(id string) (*service.FormSnapshot, error)
	Edit(id string, field form.Field, value string) (*service.FormSnapshot, error)
	Submit(ctx context.Context, id string) (*models.User, error)
	Discard(id string) error
}

// Handler serves the users screen and the creation dialog.
type Handler struct {
	users  Service
	forms  Forms
	logger *slog.Logger
}

func New(users Service, forms Forms, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{users: users, forms: forms, logger: logger}
}

// Register registers the users routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/console/users", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/refresh", h.handleRefresh)
		r.Put("/{username}", h.handleUpdate)
		r.Delete("/{username}", h.handleDelete)
		r.Patch("/{username}/status", h.handleSetStatus)
		r.Patch("/{username}/roles", h.handleSetRoles)
	})
	r.Route("/console/forms/users", func(r chi.Router) {
		r.Post("/", h.handleOpenForm)
		r.Get("/{id}", h.handleGetForm)
		r.Patch("/{id}", h.handleEditForm)
		r.Post("/{id}/submit", h.handleSubmitForm)
		r.Delete("/{id}", h.handleDiscardForm)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := models.ParseFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.users.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

type refreshResponse struct {
	Total     int       `json:"total"`
	FetchedAt time.Time `json:"fetchedAt"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Refresh(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refreshResponse{Total: len(list.Users), FetchedAt: list.FetchedAt})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.Update(r.Context(), httputil.PathParam(r, "username"), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), httputil.PathParam(r, "username")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.SetStatus(r.Context(), httputil.PathParam(r, "username"), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	var req models.RolesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.SetRoles(r.Context(), httputil.PathParam(r, "username"), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOpenForm(w http.ResponseWriter, r *http.Request) {
	snap, err := h.forms.Open(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGetForm(w http.ResponseWriter, r *http.Request) {
	snap, err := h.forms.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// EditRequest is one field edit in the creation form.
type EditRequest struct {
	Field form.Field `json:"field"`
	Value string     `json:"value"`
}

func (h *Handler) handleEditForm(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Field == "" {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "field is required"))
		return
	}
	snap, err := h.forms.Edit(chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// SubmissionResponse is returned when the submission gate blocks a create.
type SubmissionResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  []form.Field         `json:"fields"`
	State   form.ValidationState `json:"state"`
}

func (h *Handler) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	created, err := h.forms.Submit(r.Context(), chi.URLParam(r, "id"))
	var subErr *form.SubmissionError
	if errors.As(err, &subErr) {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, SubmissionResponse{
			Error:   string(dErrors.CodeValidation),
			Message: "Please fix the highlighted fields",
			Fields:  subErr.Fields,
			State:   subErr.State,
		})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDiscardForm(w http.ResponseWriter, r *http.Request) {
	if err := h.forms.Discard(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}
	mapped := service.ToDomainError(err)
	if de, ok := dErrors.As(mapped); ok && de.Code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "users request failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
	}
	httputil.WriteError(w, mapped)
}
