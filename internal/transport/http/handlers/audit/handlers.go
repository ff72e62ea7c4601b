package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/domain/audit"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

const exportLimit = 10000

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
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
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.handleListEvents)
		r.Get("/export", h.handleExportEvents)
	})
}

// filterFrom reads the query filter. since/until accept YYYY-MM-DD or RFC3339.
func filterFrom(r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
	since, until, err := shared.DateRange(r, "since", "until")
	if err != nil {
		return filter, false
	}
	filter.Since, filter.Until = since, until
	return filter, true
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter, ok := filterFrom(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "since and until must be YYYY-MM-DD or RFC3339", requestID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		h.Log.Warn("audit count failed", zap.Error(err))
	}
	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		h.Log.Error("audit list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, requestID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	filter, ok := filterFrom(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "since and until must be YYYY-MM-DD or RFC3339", middleware.GetRequestID(r.Context()))
		return
	}
	events, err := h.Service.List(r.Context(), filter, false, exportLimit, 0)
	if err != nil {
		h.Log.Error("audit export failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		h.Log.Warn("audit export header failed", zap.Error(err))
	}
	for _, evt := range events {
		row := []string{evt.ID, deref(evt.ActorID), evt.Action, evt.EntityType, evt.EntityID, deref(evt.RequestID), deref(evt.IP), evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			h.Log.Warn("audit export row failed", zap.Error(err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.Warn("audit export flush failed", zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
