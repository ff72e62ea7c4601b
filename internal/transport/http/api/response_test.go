package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailWithDetailsEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusBadRequest, "validation_error", "payload validation failed", map[string]any{"fields": []string{"email"}}, "req-1")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env struct {
		Success   bool `json:"success"`
		RequestID string
		Error     struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "req-1", env.RequestID)
	require.Equal(t, "validation_error", env.Error.Code)
	require.Contains(t, env.Error.Details, "fields")
}

func TestSuccessOmitsError(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]int{"total": 3}, "")
	require.JSONEq(t, `{"success":true,"data":{"total":3}}`, rec.Body.String())
}
