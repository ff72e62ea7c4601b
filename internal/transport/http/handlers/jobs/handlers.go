package jobshandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/platform/jobs"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	CountRuns(ctx context.Context, filter jobs.RunFilter) (int, error)
	ListRuns(ctx context.Context, filter jobs.RunFilter, limit, offset int) ([]jobs.Run, error)
	RunByID(ctx context.Context, id string) (jobs.Run, error)
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
	r.Route("/jobs/runs", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.handleListRuns)
		r.Get("/{runID}", h.handleGetRun)
	})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	from, to, err := shared.DateRange(r, "startedFrom", "startedTo")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "startedFrom and startedTo must be YYYY-MM-DD or RFC3339", requestID)
		return
	}
	q := r.URL.Query()
	filter := jobs.RunFilter{JobType: q.Get("jobType"), Status: q.Get("status"), StartedFrom: from, StartedTo: to}
	page := shared.ParsePagination(r, 50, 200)

	total, err := h.Service.CountRuns(r.Context(), filter)
	if err != nil {
		h.Log.Warn("job run count failed", zap.Error(err))
	}
	runs, err := h.Service.ListRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.Log.Error("job run list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", requestID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, requestID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Service.RunByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		if errors.Is(err, jobs.ErrRunNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "job run not found", requestID)
			return
		}
		h.Log.Error("job run lookup failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to load job run", requestID)
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}
