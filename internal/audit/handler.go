package audit

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"console/internal/adminapi"
	"console/pkg/platform/httputil"
)

// Reader is the set of views the handler serves.
type Reader interface {
	Recent(ctx context.Context, w Window) (*Page, error)
	Search(ctx context.Context, q SearchQuery) (*Page, error)
	Statistics(ctx context.Context) (*adminapi.AuditStatistics, error)
	Activity(ctx context.Context, username string) (*adminapi.ActivitySummary, error)
}

type Handler struct {
	views Reader
}

func NewHandler(views Reader) *Handler {
	return &Handler{views: views}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/console/audit", func(r chi.Router) {
		r.Get("/recent", h.handleRecent)
		r.Get("/search", h.handleSearch)
		r.Get("/statistics", h.handleStatistics)
		r.Get("/users/{username}/activity", h.handleActivity)
	})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	win, err := ParseWindow(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.views.Recent(r.Context(), win)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := ParseSearch(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.views.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.views.Statistics(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	summary, err := h.views.Activity(r.Context(), httputil.PathParam(r, "username"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
