package uploadshandler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/platform/imagehost"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 64 * 1024

type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
	MaxBytes() int64
}

type Handler struct {
	Uploader Uploader
	Log      *zap.Logger
}

func NewHandler(uploader Uploader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Uploader: uploader, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Post("/uploads/images", h.handleUploadImage)
}

func (h *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	limit := h.Uploader.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "image_too_large", "image exceeds the size limit", requestID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "image_required", "multipart field \"image\" is required", requestID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "image_unreadable", "could not read the uploaded file", requestID)
		return
	}

	hosted, err := h.Uploader.Upload(r.Context(), header.Filename, data)
	switch {
	case err == nil:
		api.Created(w, map[string]string{"url": hosted}, requestID)
	case errors.Is(err, imagehost.ErrTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "image_too_large", err.Error(), requestID)
	case errors.Is(err, imagehost.ErrNotImage):
		api.Fail(w, http.StatusUnsupportedMediaType, "image_unsupported", err.Error(), requestID)
	case errors.Is(err, imagehost.ErrNotConfigured):
		api.Fail(w, http.StatusServiceUnavailable, "upload_unavailable", err.Error(), requestID)
	default:
		h.Log.Warn("image upload failed", zap.String("filename", header.Filename), zap.Error(err))
		api.Fail(w, http.StatusBadGateway, "upload_failed", "image upload failed", requestID)
	}
}
