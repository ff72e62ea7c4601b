package dashboardhandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/domain/employee"
	"ems/internal/transport/http/middleware"
)

type stubService struct {
	err    error
	caller auth.UserContext
}

func (s *stubService) Get(context.Context) (dashboard.Summary, error) {
	if s.err != nil {
		return dashboard.Summary{}, s.err
	}
	return dashboard.Summarize([]employee.Employee{
		{ID: "1", Department: "R&D", Status: employee.StatusActive},
		{ID: "2", Department: "Sales", Status: employee.StatusOnLeave},
	}, dashboard.RecentCount), nil
}

func (s *stubService) Badges(_ context.Context, user auth.UserContext) (dashboard.Badges, error) {
	s.caller = user
	return dashboard.Badges{UnreadAnnouncements: 3, ActiveEmployees: 7}, nil
}

func serve(svc Service, path string, user *auth.UserContext) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSummary(t *testing.T) {
	rec := serve(&stubService{}, "/dashboard", &auth.UserContext{UserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":2`)
	require.Contains(t, rec.Body.String(), `"active":1`)
	require.Contains(t, rec.Body.String(), `"departments":2`)
}

func TestSummaryFailure(t *testing.T) {
	rec := serve(&stubService{err: errors.New("db down")}, "/dashboard", &auth.UserContext{UserID: "u1"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "dashboard_failed")
}

func TestBadgesUseCaller(t *testing.T) {
	svc := &stubService{}
	rec := serve(svc, "/dashboard/badges", &auth.UserContext{UserID: "u9"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u9", svc.caller.UserID)
	require.Contains(t, rec.Body.String(), `"unreadAnnouncements":3`)
}

func TestDashboardRequiresAuth(t *testing.T) {
	rec := serve(&stubService{}, "/dashboard", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
