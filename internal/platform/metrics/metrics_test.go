package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorCountsRateLimitedRequests(t *testing.T) {
	c := New()
	c.RecordRequest(http.MethodPost, "/api/v1/auth/login", http.StatusOK, 5*time.Millisecond)
	c.RecordRequest(http.MethodPost, "/api/v1/auth/login", http.StatusTooManyRequests, time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(c.rateLimited))
}

func TestCollectorDomainCounters(t *testing.T) {
	c := New()
	c.EmployeeWrite("create")
	c.EmployeeWrite("create")
	c.ImageUpload("ok")
	c.RealtimeEvent("projects")

	require.Equal(t, float64(2), testutil.ToFloat64(c.employeeWrites.WithLabelValues("create")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.imageUploads.WithLabelValues("ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.realtimeEvents.WithLabelValues("projects")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	c.EmployeeWrite("delete")
	c.ImageUpload("failed")
	c.RealtimeEvent("employees")
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.EmployeeWrite("update")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "employee_writes_total"))
}
