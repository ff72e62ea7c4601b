package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{})
	require.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE 1=1", query)
	require.Empty(t, args)

	query, args = buildBaseQuery("SELECT id", Filter{EntityType: "employee", ActorUser: "u1"})
	require.Equal(t, "SELECT id FROM audit_events WHERE 1=1 AND entity_type = $1 AND actor_user_id::text = $2", query)
	require.Equal(t, []any{"employee", "u1"}, args)

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	query, args = buildBaseQuery("SELECT id", Filter{Action: ActionDelete, Since: since})
	require.Equal(t, "SELECT id FROM audit_events WHERE 1=1 AND action = $1 AND created_at >= $2", query)
	require.Equal(t, []any{ActionDelete, since}, args)
}

func TestMarshalState(t *testing.T) {
	out, err := marshalState(nil)
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = marshalState(map[string]string{"status": "Active"})
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"Active"}`, string(out))
}

func TestDiscard(t *testing.T) {
	require.NoError(t, Discard.Record(context.Background(), "u1", ActionCreate, "employee", "e1", nil, map[string]string{}))
}
