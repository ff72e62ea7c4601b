package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrRunNotFound = errors.New("job run not found")

type Run struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type RunFilter struct {
	JobType     string
	Status      string
	StartedFrom time.Time
	StartedTo   time.Time
}

const runColumns = `id, job_type, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at`

func (s *Service) ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error) {
	query, args := runsQuery(filter)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Service) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	query, args := runsQuery(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM ("+query+") runs", args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) RunByID(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.DB.QueryRow(ctx, `SELECT `+runColumns+` FROM job_runs WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

func runsQuery(filter RunFilter) (string, []any) {
	query := `SELECT ` + runColumns + ` FROM job_runs WHERE 1=1`
	var args []any

	if value := strings.TrimSpace(filter.JobType); value != "" {
		args = append(args, value)
		query += " AND job_type = $" + strconv.Itoa(len(args))
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		args = append(args, value)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if !filter.StartedFrom.IsZero() {
		args = append(args, filter.StartedFrom)
		query += " AND started_at >= $" + strconv.Itoa(len(args))
	}
	if !filter.StartedTo.IsZero() {
		args = append(args, filter.StartedTo)
		query += " AND started_at < $" + strconv.Itoa(len(args))
	}
	return query, args
}

func scanRun(row pgx.Row) (Run, error) {
	var (
		run Run
		raw []byte
	)
	if err := row.Scan(&run.ID, &run.JobType, &run.Status, &raw, &run.StartedAt, &run.CompletedAt); err != nil {
		return Run{}, err
	}
	run.Details = decodeDetails(raw)
	return run, nil
}

// decodeDetails keeps unparsable payloads visible under "raw".
func decodeDetails(raw []byte) map[string]any {
	details := map[string]any{}
	if len(raw) == 0 {
		return details
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return details
}
