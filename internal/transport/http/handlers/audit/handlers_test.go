package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/transport/http/middleware"
)

type stubService struct {
	filter audit.Filter
	limit  int
	offset int
}

func (s *stubService) Count(_ context.Context, f audit.Filter) (int, error) {
	s.filter = f
	return 42, nil
}

func (s *stubService) List(_ context.Context, f audit.Filter, _ bool, limit, offset int) ([]audit.Event, error) {
	s.filter, s.limit, s.offset = f, limit, offset
	actor := "u1"
	return []audit.Event{{ID: "ev1", ActorID: &actor, Action: audit.ActionDelete, EntityType: "employee", EntityID: "e1", CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}}, nil
}

func serve(svc Service, path string, user auth.UserContext) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

var admin = auth.UserContext{UserID: "root", Role: auth.RoleAdmin}

func TestAuditRequiresAdmin(t *testing.T) {
	rec := serve(&stubService{}, "/audit", auth.UserContext{UserID: "u1", Role: auth.RoleUser})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuditListAppliesFilter(t *testing.T) {
	svc := &stubService{}
	rec := serve(svc, "/audit?entityType=employee&since=2024-03-01&until=2024-03-01&limit=10&offset=5", admin)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "42", rec.Header().Get("X-Total-Count"))
	require.Equal(t, "employee", svc.filter.EntityType)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), svc.filter.Since)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), svc.filter.Until)
	require.Equal(t, 10, svc.limit)
	require.Equal(t, 5, svc.offset)
}

func TestAuditListRejectsBadDate(t *testing.T) {
	rec := serve(&stubService{}, "/audit?since=yesterday", admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_date")
}

func TestAuditExportCSV(t *testing.T) {
	rec := serve(&stubService{}, "/audit/export", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"ev1", "u1", "delete", "employee", "e1", "", "", "2024-03-01T09:00:00Z"}, rows[1])
}
