package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
)

func TestCanModify(t *testing.T) {
	stamp := Stamp{UID: "creator", Name: "Ada", Email: "ada@example.com"}
	tests := []struct {
		name string
		user auth.UserContext
		want bool
	}{
		{name: "creator", user: auth.UserContext{UserID: "creator", Role: auth.RoleUser}, want: true},
		{name: "other user", user: auth.UserContext{UserID: "other", Role: auth.RoleUser}},
		{name: "admin", user: auth.UserContext{UserID: "boss", Role: auth.RoleAdmin}, want: true},
		{name: "anonymous", user: auth.UserContext{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CanModify(tc.user, stamp))
			if tc.want {
				require.NoError(t, Check(tc.user, stamp))
			} else {
				require.ErrorIs(t, Check(tc.user, stamp), ErrPermissionDenied)
			}
		})
	}
}

func TestCanModifyUnstampedRecord(t *testing.T) {
	require.False(t, CanModify(auth.UserContext{UserID: "u1"}, Stamp{}))
	require.True(t, CanModify(auth.UserContext{UserID: "u1", Role: auth.RoleAdmin}, Stamp{}))
}

func TestStampFor(t *testing.T) {
	got := StampFor(auth.UserContext{UserID: "u1", DisplayName: "Ada", Email: "ada@example.com", Role: auth.RoleAdmin})
	require.Equal(t, Stamp{UID: "u1", Name: "Ada", Email: "ada@example.com"}, got)
}
