package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunsQueryNumbersFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := runsQuery(RunFilter{JobType: JobSessionPurge, Status: " failed ", StartedFrom: from})

	require.Contains(t, query, "job_type = $1")
	require.Contains(t, query, "status = $2")
	require.Contains(t, query, "started_at >= $3")
	require.NotContains(t, query, "started_at <")
	require.Equal(t, []any{JobSessionPurge, "failed", from}, args)
}

func TestRunsQueryWithoutFilters(t *testing.T) {
	query, args := runsQuery(RunFilter{})
	require.NotContains(t, query, "$")
	require.Empty(t, args)
}

func TestDecodeDetails(t *testing.T) {
	require.Equal(t, map[string]any{}, decodeDetails(nil))
	require.Equal(t, map[string]any{"sessions": float64(3)}, decodeDetails([]byte(`{"sessions":3}`)))
	require.Equal(t, map[string]any{"raw": "not json"}, decodeDetails([]byte("not json")))
}
