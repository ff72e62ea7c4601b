package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/middleware"
)

type stubService struct {
	signInErr   error
	resetEmails []string
	signedOut   []string
	me          auth.User
}

func (s *stubService) SignIn(_ context.Context, email, password, _ string) (auth.Session, error) {
	if s.signInErr != nil {
		return auth.Session{}, s.signInErr
	}
	return auth.Session{Token: "tok", User: auth.User{ID: "u1", Email: email}}, nil
}

func (s *stubService) SignInMethods(_ context.Context, email string) ([]string, error) {
	if email == "known@example.com" {
		return []string{auth.SignInMethodPassword}, nil
	}
	return []string{}, nil
}

func (s *stubService) SignUp(_ context.Context, name, email, _ string) (auth.Session, error) {
	return auth.Session{Token: "tok", User: auth.User{ID: "u2", Email: email, DisplayName: name}}, nil
}

func (s *stubService) RequestPasswordReset(_ context.Context, email string) error {
	s.resetEmails = append(s.resetEmails, email)
	return nil
}

func (s *stubService) ResetPassword(_ context.Context, token, _ string) error {
	if token != "good" {
		return &auth.Error{Code: auth.CodeInvalidActionCode}
	}
	return nil
}

func (s *stubService) SignOut(_ context.Context, user auth.UserContext) error {
	s.signedOut = append(s.signedOut, user.UserID)
	return nil
}

func (s *stubService) Refresh(context.Context, auth.UserContext) (auth.Session, error) {
	return auth.Session{Token: "rotated"}, nil
}

func (s *stubService) Me(context.Context, auth.UserContext) (auth.User, error) {
	return s.me, nil
}

func (s *stubService) SetupMFA(context.Context, auth.UserContext) (auth.MFASetup, error) {
	return auth.MFASetup{}, &auth.Error{Code: auth.CodeOperationNotAllowed}
}

func (s *stubService) EnableMFA(context.Context, auth.UserContext, string) error  { return nil }
func (s *stubService) DisableMFA(context.Context, auth.UserContext, string) error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter(svc Service, user *auth.UserContext) http.Handler {
	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), *user)))
			})
		})
	}
	NewHandler(svc, nil).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestLoginFailureUsesCodeTable(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "wrong password", err: &auth.Error{Code: auth.CodeWrongPassword}, wantStatus: http.StatusUnauthorized, wantCode: auth.CodeWrongPassword},
		{name: "disabled", err: &auth.Error{Code: auth.CodeUserDisabled}, wantStatus: http.StatusForbidden, wantCode: auth.CodeUserDisabled},
		{name: "unclassified", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: auth.CodeInternal},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: http.StatusServiceUnavailable, wantCode: auth.CodeNetworkFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := do(t, newRouter(&stubService{signInErr: tc.err}, nil), http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"x"}`)
			require.Equal(t, tc.wantStatus, status)
			require.False(t, env.Success)
			require.Equal(t, tc.wantCode, env.Error.Code)
			require.Equal(t, auth.Message(tc.wantCode), env.Error.Message)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	status, env := do(t, newRouter(&stubService{}, nil), http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)
	require.Contains(t, string(env.Data), `"token":"tok"`)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	status, env := do(t, newRouter(&stubService{}, nil), http.MethodPost, "/auth/login", `{"email":`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_json", env.Error.Code)
}

func TestSignInMethods(t *testing.T) {
	h := newRouter(&stubService{}, nil)

	_, env := do(t, h, http.MethodGet, "/auth/sign-in-methods?email=known@example.com", "")
	require.JSONEq(t, `{"methods":["password"]}`, string(env.Data))

	_, env = do(t, h, http.MethodGet, "/auth/sign-in-methods?email=nobody@example.com", "")
	require.JSONEq(t, `{"methods":[]}`, string(env.Data))
}

func TestSignUpReturnsCreated(t *testing.T) {
	status, env := do(t, newRouter(&stubService{}, nil), http.MethodPost, "/auth/signup", `{"displayName":"Ann","email":"ann@example.com","password":"Secret123"}`)
	require.Equal(t, http.StatusCreated, status)
	require.Contains(t, string(env.Data), `"displayName":"Ann"`)
}

func TestRequestResetAlwaysSucceeds(t *testing.T) {
	svc := &stubService{}
	status, env := do(t, newRouter(svc, nil), http.MethodPost, "/auth/request-reset", `{"email":"ghost@example.com"}`)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"reset_requested"}`, string(env.Data))
	require.Equal(t, []string{"ghost@example.com"}, svc.resetEmails)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	status, env := do(t, newRouter(&stubService{}, nil), http.MethodPost, "/auth/reset", `{"token":"bad","newPassword":"Stronger123"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, auth.CodeInvalidActionCode, env.Error.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newRouter(&stubService{}, nil)
	for _, path := range []string{"/auth/logout", "/auth/refresh", "/auth/mfa/setup"} {
		status, env := do(t, h, http.MethodPost, path, `{}`)
		require.Equal(t, http.StatusUnauthorized, status, path)
		require.Equal(t, "unauthorized", env.Error.Code)
	}
	status, _ := do(t, h, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutAndMe(t *testing.T) {
	svc := &stubService{me: auth.User{ID: "u1", Email: "u1@example.com", Role: auth.RoleUser}}
	h := newRouter(svc, &auth.UserContext{UserID: "u1", SessionID: "s1"})

	status, _ := do(t, h, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []string{"u1"}, svc.signedOut)

	_, env := do(t, h, http.MethodGet, "/me", "")
	require.Contains(t, string(env.Data), `"uid":"u1"`)
}

func TestMFASetupUnavailable(t *testing.T) {
	h := newRouter(&stubService{}, &auth.UserContext{UserID: "u1"})
	status, env := do(t, h, http.MethodPost, "/auth/mfa/setup", "")
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, auth.CodeOperationNotAllowed, env.Error.Code)
}
