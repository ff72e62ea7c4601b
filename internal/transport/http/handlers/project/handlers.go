package projecthandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/domain/project"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, status string) ([]project.Project, error)
	Get(ctx context.Context, id string) (project.Project, error)
	Create(ctx context.Context, user auth.UserContext, in project.Input) (project.Project, error)
	Update(ctx context.Context, user auth.UserContext, id string, in project.Input) (project.Project, error)
	Delete(ctx context.Context, user auth.UserContext, id string) error
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
	r.Route("/projects", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err, project.ErrNotFound, "project_list_failed")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err, project.ErrNotFound, "project_get_failed")
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var in project.Input
	if !shared.DecodeJSON(w, r, &in) {
		return
	}
	created, err := h.Service.Create(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, project.ErrNotFound, "project_create_failed")
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var in project.Input
	if !shared.DecodeJSON(w, r, &in) {
		return
	}
	updated, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "id"), in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, project.ErrNotFound, "project_update_failed")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		shared.WriteError(w, r, h.Log, err, project.ErrNotFound, "project_delete_failed")
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, middleware.GetRequestID(r.Context()))
}
