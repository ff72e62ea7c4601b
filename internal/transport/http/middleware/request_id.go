package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"ems/internal/platform/requestctx"
)

const RequestIDHeader = "X-Request-ID"

// RequestID keeps a caller-supplied id when present and records the client
// address so the audit log can pick both up from the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := requestctx.WithRequestID(r.Context(), requestID)
		ctx = requestctx.WithClientIP(ctx, clientIPKey(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
