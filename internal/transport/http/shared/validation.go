package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ems/internal/domain/access"
	"ems/internal/platform/validate"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
)

// DecodeJSON reads a single JSON object into dst and writes the failure
// response itself. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		requestID := middleware.GetRequestID(r.Context())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return false
	}
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, fields []validate.FieldError) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": fields},
		requestID,
	)
}

// WriteError turns a domain error into the response envelope. notFound is the
// caller's sentinel for a missing record.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, notFound error, fallbackCode string) {
	requestID := middleware.GetRequestID(r.Context())
	if verr, ok := validate.As(err); ok {
		FailValidation(w, requestID, verr.Fields)
		return
	}
	switch {
	case notFound != nil && errors.Is(err, notFound):
		api.Fail(w, http.StatusNotFound, "not_found", strings.TrimSpace(notFound.Error()), requestID)
	case errors.Is(err, access.ErrPermissionDenied):
		api.Fail(w, http.StatusForbidden, "permission-denied", "you can only change records you created", requestID)
	default:
		if log != nil {
			log.Error(fallbackCode, zap.Error(err), zap.String("requestId", requestID))
		}
		api.Fail(w, http.StatusInternalServerError, fallbackCode, "request failed", requestID)
	}
}
