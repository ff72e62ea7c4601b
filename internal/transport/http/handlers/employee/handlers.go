package employeehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

const createEndpoint = "employees.create"

type Service interface {
	List(ctx context.Context, c employee.Criteria, page int) (employee.ListResult, error)
	Get(ctx context.Context, id string) (employee.Employee, error)
	Create(ctx context.Context, user auth.UserContext, in employee.Input) (employee.Employee, error)
	Update(ctx context.Context, user auth.UserContext, id string, in employee.Input) (employee.Employee, error)
	Delete(ctx context.Context, user auth.UserContext, id string) error
	ExportPDF(ctx context.Context, c employee.Criteria, w io.Writer) (int, error)
}

// Idempotency reserves a key before the create runs and replays the stored
// response afterwards. *middleware.IdempotencyStore satisfies it.
type Idempotency interface {
	Reserve(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, error)
	Complete(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error
	Release(ctx context.Context, userID, endpoint, key string) error
}

type Handler struct {
	Service     Service
	Idempotency Idempotency
	Log         *zap.Logger
}

func NewHandler(service Service, idem Idempotency, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Idempotency: idem, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/export.pdf", h.handleExportPDF)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func criteriaFrom(r *http.Request) employee.Criteria {
	q := r.URL.Query()
	return employee.Criteria{
		Search:     q.Get("search"),
		Department: q.Get("department"),
		Role:       q.Get("role"),
		Status:     q.Get("status"),
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.List(r.Context(), criteriaFrom(r), shared.ParsePage(r))
	if err != nil {
		shared.WriteError(w, r, h.Log, err, employee.ErrNotFound, "employee_list_failed")
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.Log, err, employee.ErrNotFound, "employee_get_failed")
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	key := r.Header.Get(middleware.IdempotencyHeader)
	requestHash := middleware.RequestHash(raw)
	reserved := false
	if key != "" && h.Idempotency != nil {
		stored, err := h.Idempotency.Reserve(r.Context(), user.UserID, createEndpoint, key, requestHash)
		switch {
		case errors.Is(err, middleware.ErrIdempotencyConflict):
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", requestID)
			return
		case errors.Is(err, middleware.ErrIdempotencyInFlight):
			w.Header().Set("Retry-After", "1")
			api.Fail(w, http.StatusConflict, "idempotency_in_flight", "a request with this idempotency key is still in progress", requestID)
			return
		case err != nil:
			h.Log.Warn("idempotency reserve failed", zap.Error(err))
		case stored != nil:
			api.WriteJSON(w, http.StatusCreated, api.Envelope{Success: true, Data: stored, RequestID: requestID})
			return
		default:
			reserved = true
		}
	}
	// A reservation outlives a successful create even when saving the
	// response fails, so a retry cannot insert a second record.
	created := false
	if reserved {
		defer func() {
			if created {
				return
			}
			if err := h.Idempotency.Release(context.WithoutCancel(r.Context()), user.UserID, createEndpoint, key); err != nil {
				h.Log.Warn("idempotency release failed", zap.Error(err))
			}
		}()
	}

	var in employee.Input
	if !shared.DecodeJSON(w, r, &in) {
		return
	}
	emp, err := h.Service.Create(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, employee.ErrNotFound, "employee_create_failed")
		return
	}
	created = true

	if reserved {
		payload, err := json.Marshal(emp)
		if err == nil {
			err = h.Idempotency.Complete(context.WithoutCancel(r.Context()), user.UserID, createEndpoint, key, requestHash, payload)
		}
		if err != nil {
			h.Log.Warn("idempotency save failed", zap.String("employeeId", emp.ID), zap.Error(err))
		}
	}
	api.Created(w, emp, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var in employee.Input
	if !shared.DecodeJSON(w, r, &in) {
		return
	}
	updated, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "id"), in)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, employee.ErrNotFound, "employee_update_failed")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		shared.WriteError(w, r, h.Log, err, employee.ErrNotFound, "employee_delete_failed")
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, middleware.GetRequestID(r.Context()))
}

// handleExportPDF renders into memory first so a failure can still be
// reported as a JSON envelope.
func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	count, err := h.Service.ExportPDF(r.Context(), criteriaFrom(r), &buf)
	if err != nil {
		shared.WriteError(w, r, h.Log, err, employee.ErrNotFound, "employee_export_failed")
		return
	}
	filename := fmt.Sprintf("employees-%s.pdf", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Total-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warn("pdf export write failed", zap.Error(err))
	}
}
