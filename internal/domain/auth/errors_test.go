package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageTable(t *testing.T) {
	tests := []struct {
		code   string
		want   string
		status int
	}{
		{CodeUserNotFound, "No account found with this email.", http.StatusUnauthorized},
		{CodeWrongPassword, "Incorrect password. Please try again.", http.StatusUnauthorized},
		{CodeTooManyRequests, "Too many attempts. Please try again later.", http.StatusTooManyRequests},
		{CodeNetworkFailed, "Network error. Please check your connection.", http.StatusServiceUnavailable},
		{"auth/something-new", "Something went wrong. Please try again.", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			require.Equal(t, tc.want, Message(tc.code))
			require.Equal(t, tc.status, HTTPStatus(tc.code))
		})
	}
}

func TestEveryCodeHasStatus(t *testing.T) {
	for code := range messages {
		_, ok := statuses[code]
		require.True(t, ok, "missing status for %s", code)
	}
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, "", CodeOf(nil))
	require.Equal(t, CodeWrongPassword, CodeOf(newError(CodeWrongPassword, nil)))
	require.Equal(t, CodeWrongPassword, CodeOf(fmt.Errorf("wrapped: %w", newError(CodeWrongPassword, nil))))
	require.Equal(t, CodeInternal, CodeOf(newError("auth/bogus", nil)))
	require.Equal(t, CodeNetworkFailed, CodeOf(context.DeadlineExceeded))
	require.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := classify(cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, CodeInternal, err.Code)
}
