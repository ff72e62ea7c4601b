package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	JobResetEmail   = "password_reset_email"
	JobSessionPurge = "session_purge"
)

// RunFunc does the work of one job and returns details stored on its job_runs row.
type RunFunc = func(context.Context) (any, error)

type Service struct {
	DB    *pgxpool.Pool
	Log   *zap.Logger
	queue chan job
}

type job struct {
	Type string
	Run  RunFunc
}

// New returns a queue backed by one worker. A nil pool disables job_runs bookkeeping.
func New(db *pgxpool.Pool, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		DB:    db,
		Log:   log,
		queue: make(chan job, 128),
	}
}

// Start launches the worker and, when interval is positive, the purge schedule.
func (s *Service) Start(ctx context.Context, purgeInterval time.Duration) {
	go s.worker(ctx)
	if purgeInterval > 0 && s.DB != nil {
		go s.schedulePurge(ctx, purgeInterval)
	}
}

func (s *Service) Enqueue(jobType string, run RunFunc) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		s.Log.Warn("job queue full", zap.String("jobType", jobType))
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.Log.Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := s.startRun(ctx, j.Type)

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	s.finishRun(ctx, runID, status, details)
	return details, err
}

func (s *Service) startRun(ctx context.Context, jobType string) string {
	if s.DB == nil {
		return ""
	}
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, "running").Scan(&runID); err != nil {
		s.Log.Warn("job run insert failed", zap.Error(err))
		return ""
	}
	return runID
}

func (s *Service) finishRun(ctx context.Context, runID, status string, details any) {
	if runID == "" {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.Log.Warn("job details marshal failed", zap.Error(err))
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		s.Log.Warn("job run update failed", zap.Error(err))
	}
}

func (s *Service) schedulePurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobSessionPurge, s.purgeExpired)
		}
	}
}

// purgeExpired drops sessions, reset tokens and idempotency records that can
// no longer be used. A reservation left by a crashed request expires after
// five minutes.
func (s *Service) purgeExpired(ctx context.Context) (any, error) {
	sessions, err := s.DB.Exec(ctx, `
    DELETE FROM sessions
    WHERE expires_at < now() OR revoked_at < now() - interval '1 day'
  `)
	if err != nil {
		return nil, err
	}
	resets, err := s.DB.Exec(ctx, `
    DELETE FROM password_resets
    WHERE expires_at < now() OR used_at IS NOT NULL
  `)
	if err != nil {
		return nil, err
	}
	keys, err := s.DB.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE created_at < now() - interval '1 day'
       OR (response_json IS NULL AND created_at < now() - interval '5 minutes')
  `)
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"sessions":        sessions.RowsAffected(),
		"passwordResets":  resets.RowsAffected(),
		"idempotencyKeys": keys.RowsAffected(),
	}, nil
}
