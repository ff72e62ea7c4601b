package authhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

// Service is the part of auth.Service the handlers call.
type Service interface {
	SignIn(ctx context.Context, email, password, mfaCode string) (auth.Session, error)
	SignInMethods(ctx context.Context, email string) ([]string, error)
	SignUp(ctx context.Context, displayName, email, password string) (auth.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SignOut(ctx context.Context, user auth.UserContext) error
	Refresh(ctx context.Context, user auth.UserContext) (auth.Session, error)
	Me(ctx context.Context, user auth.UserContext) (auth.User, error)
	SetupMFA(ctx context.Context, user auth.UserContext) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, user auth.UserContext, code string) error
	DisableMFA(ctx context.Context, user auth.UserContext, code string) error
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
	r.Post("/auth/login", h.HandleLogin)
	r.Get("/auth/sign-in-methods", h.HandleSignInMethods)
	r.Post("/auth/signup", h.HandleSignUp)
	r.Post("/auth/request-reset", h.HandleRequestReset)
	r.Post("/auth/reset", h.HandleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/auth/logout", h.HandleLogout)
		r.Post("/auth/refresh", h.HandleRefresh)
		r.Post("/auth/mfa/setup", h.HandleMFASetup)
		r.Post("/auth/mfa/enable", h.HandleMFAEnable)
		r.Post("/auth/mfa/disable", h.HandleMFADisable)
		r.Get("/me", h.HandleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type signUpRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	session, err := h.Service.SignIn(r.Context(), payload.Email, payload.Password, payload.MFACode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, session, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleSignInMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Service.SignInMethods(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{"methods": methods}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload signUpRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	session, err := h.Service.SignUp(r.Context(), payload.DisplayName, payload.Email, payload.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, session, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.Service.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.Service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.SignOut(r.Context(), user); err != nil {
		h.Log.Warn("logout session revoke failed", zap.String("userId", user.UserID), zap.Error(err))
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	session, err := h.Service.Refresh(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, session, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	me, err := h.Service.Me(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, me, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	setup, err := h.Service.SetupMFA(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, setup, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Service.EnableMFA, "mfa_enabled")
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Service.DisableMFA, "mfa_disabled")
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, fn func(context.Context, auth.UserContext, string) error, status string) {
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if err := fn(r.Context(), user, payload.Code); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

// fail reports every auth failure through the fixed code table so the client
// can show one message per code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := auth.CodeOf(err)
	if code == auth.CodeInternal || code == auth.CodeNetworkFailed {
		h.Log.Error("auth request failed", zap.String("code", code), zap.String("path", r.URL.Path), zap.Error(err))
	}
	api.Fail(w, auth.HTTPStatus(code), code, auth.Message(code), middleware.GetRequestID(r.Context()))
}
