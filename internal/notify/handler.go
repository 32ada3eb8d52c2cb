package notify

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "console/pkg/domain-errors"
	"console/pkg/platform/httputil"
)

// Handler exposes the feed to the UI.
type Handler struct {
	feed *Feed
}

func NewHandler(feed *Feed) *Handler {
	return &Handler{feed: feed}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/console/notifications", h.handleList)
	r.Delete("/console/notifications/{id}", h.handleDismiss)
}

type listResponse struct {
	Notifications []Notification `json:"notifications"`
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, listResponse{Notifications: h.feed.Active()})
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !h.feed.Dismiss(chi.URLParam(r, "id")) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "notification not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
