package announcementhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/domain/announcement"
	"ems/internal/domain/auth"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context) ([]announcement.Announcement, error)
	Create(ctx context.Context, user auth.UserContext, in announcement.Input) (announcement.Announcement, error)
	Update(ctx context.Context, user auth.UserContext, id string, in announcement.Input) (announcement.Announcement, error)
	Delete(ctx context.Context, user auth.UserContext, id string) error
	MarkRead(ctx context.Context, user auth.UserContext, id string) error
}

type Handler struct {
	Service Service
	Log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/announcements", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/read", h.handleMarkRead)
	})
}

// item adds the caller's read flag so the board can style unread cards.
type item struct {
	announcement.Announcement
	Read bool `json:"read"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.List(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.Log, err, announcement.ErrNotFound, "announcement_list_failed")
		return
	}
	out := make([]item, 0, len(list))
	for _, a := range list {
		out = append(out, item{Announcement: a, Read: a.ReadByUser(user.UserID)})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var in announcement.Input
	if !shared.DecodeJSON(w, r, &in) {
		return
	}
	created, err := h.Service.Create(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, announcement.ErrNotFound, "announcement_create_failed")
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var in announcement.Input
	if !shared.DecodeJSON(w, r, &in) {
		return
	}
	updated, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "id"), in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, announcement.ErrNotFound, "announcement_update_failed")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		shared.WriteError(w, r, h.Log, err, announcement.ErrNotFound, "announcement_delete_failed")
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.Service.MarkRead(r.Context(), user, id); err != nil {
		shared.WriteError(w, r, h.Log, err, announcement.ErrNotFound, "announcement_read_failed")
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "read"}, middleware.GetRequestID(r.Context()))
}
