package dashboardhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
)

type Service interface {
	Get(ctx context.Context) (dashboard.Summary, error)
	Badges(ctx context.Context, user auth.UserContext) (dashboard.Badges, error)
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
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleSummary)
		r.Get("/badges", h.handleBadges)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Get(r.Context())
	if err != nil {
		h.Log.Error("dashboard summary failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBadges(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	badges, err := h.Service.Badges(r.Context(), user)
	if err != nil {
		h.Log.Error("dashboard badges failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "badges_failed", "failed to load badges", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, badges, middleware.GetRequestID(r.Context()))
}
