package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
)

type stubSessions struct {
	active bool
	err    error
}

func (s stubSessions) SessionActive(context.Context, auth.UserContext) (bool, error) {
	return s.active, s.err
}

func signedToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken("test-secret", auth.Claims{UserID: "u1", Email: "u1@example.com", Role: role, SessionID: "s1"}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAuthMiddlewareSetsUser(t *testing.T) {
	var seen auth.UserContext
	handler := Auth("test-secret", stubSessions{active: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		require.True(t, ok)
		seen = user
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, auth.RoleAdmin))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "u1", seen.UserID)
	require.Equal(t, "s1", seen.SessionID)
	require.True(t, seen.IsAdmin())
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	called := false
	handler := Auth("secret", nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := GetUser(r.Context())
		require.False(t, ok)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestAuthMiddlewareIgnoresRevokedSession(t *testing.T) {
	handler := Auth("test-secret", stubSessions{active: false}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := GetUser(r.Context())
		require.False(t, ok)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, auth.RoleUser))
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthMiddlewareSessionLookupFailure(t *testing.T) {
	handler := Auth("test-secret", stubSessions{err: errors.New("db down")}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, auth.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), auth.CodeNetworkFailed)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	var ok bool
	handler := Auth("test-secret", nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/employees?access_token="+signedToken(t, auth.RoleUser), nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{name: "anonymous", ctx: context.Background(), want: http.StatusUnauthorized},
		{name: "regular user", ctx: WithUser(context.Background(), auth.UserContext{UserID: "u1", Role: auth.RoleUser}), want: http.StatusForbidden},
		{name: "admin", ctx: WithUser(context.Background(), auth.UserContext{UserID: "a1", Role: auth.RoleAdmin}), want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx))
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var reqID, ip string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = GetRequestID(r.Context())
		ip = clientIPKey(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, reqID)
	require.Equal(t, reqID, rec.Header().Get(RequestIDHeader))
	require.Equal(t, "192.0.2.1", ip)
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecovererReturnsEnvelope(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"internal_error"`)
}

func TestRequestHashDeterministic(t *testing.T) {
	require.Equal(t, RequestHash([]byte("payload")), RequestHash([]byte("payload")))
	require.NotEqual(t, RequestHash([]byte("payload")), RequestHash([]byte("other")))
}

func TestIdempotencyReplay(t *testing.T) {
	hash := RequestHash([]byte(`{"firstName":"Anna"}`))

	stored, err := replay(hash, hash, []byte(`{"id":"e1"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"e1"}`, string(stored))

	_, err = replay(hash, hash, nil)
	require.ErrorIs(t, err, ErrIdempotencyInFlight)

	_, err = replay(hash, RequestHash([]byte(`{}`)), []byte(`{"id":"e1"}`))
	require.ErrorIs(t, err, ErrIdempotencyConflict)
}

func TestIdempotencyStoreWithoutDatabase(t *testing.T) {
	var store *IdempotencyStore
	stored, err := store.Reserve(context.Background(), "u1", "employees.create", "k", "h")
	require.NoError(t, err)
	require.Nil(t, stored)
	require.NoError(t, store.Complete(context.Background(), "u1", "employees.create", "k", "h", []byte(`{}`)))
	require.NoError(t, store.Release(context.Background(), "u1", "employees.create", "k"))
}
