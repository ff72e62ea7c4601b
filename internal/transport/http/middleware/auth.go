package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/api"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// SessionChecker reports whether the session behind a token is still open.
// auth.Service satisfies it.
type SessionChecker interface {
	SessionActive(ctx context.Context, user auth.UserContext) (bool, error)
}

// Auth attaches the caller to the request when a valid bearer token is
// present. Requests without one pass through untouched; RequireAuth decides
// whether that is acceptable.
func Auth(secret string, sessions SessionChecker, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			user := claims.UserContext()

			if sessions != nil {
				active, err := sessions.SessionActive(r.Context(), user)
				if err != nil {
					log.Warn("session lookup failed", zap.String("userId", user.UserID), zap.Error(err))
					api.Fail(w, http.StatusServiceUnavailable, auth.CodeNetworkFailed, auth.Message(auth.CodeNetworkFailed), GetRequestID(r.Context()))
					return
				}
				if !active {
					next.ServeHTTP(w, r)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// bearerToken also accepts an access_token query parameter because
// EventSource cannot set headers.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		if !user.IsAdmin() {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
