package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/domain/employee"
	"ems/internal/platform/cache"
)

const cacheKey = "dashboard:summary"

type EmployeeLister interface {
	All(ctx context.Context) ([]employee.Employee, error)
}

// EmployeeListerFunc adapts a plain list function, such as a store's List.
type EmployeeListerFunc func(ctx context.Context) ([]employee.Employee, error)

func (f EmployeeListerFunc) All(ctx context.Context) ([]employee.Employee, error) {
	return f(ctx)
}

type UnreadCounter interface {
	UnreadCount(ctx context.Context, user auth.UserContext) (int, error)
}

type Badges struct {
	UnreadAnnouncements int `json:"unreadAnnouncements"`
	ActiveEmployees     int `json:"activeEmployees"`
}

type Service struct {
	employees     EmployeeLister
	announcements UnreadCounter
	cache         cache.Cache
	ttl           time.Duration
	log           *zap.Logger

	// generation advances on every Invalidate. A summary computed under an
	// older generation is never left in the cache.
	generation atomic.Uint64
}

// NewService caches summaries in c for ttl. A nil cache computes every call.
func NewService(employees EmployeeLister, announcements UnreadCounter, c cache.Cache, ttl time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{employees: employees, announcements: announcements, cache: c, ttl: ttl, log: log}
}

// Get serves the cached summary when present. Cache errors fall through to a
// fresh computation.
func (s *Service) Get(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var cached Summary
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
			s.log.Warn("dashboard cache entry unreadable")
		case !errors.Is(err, cache.ErrMiss):
			s.log.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	gen := s.generation.Load()
	list, err := s.employees.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(list, RecentCount)

	if s.cache != nil && s.ttl > 0 && s.generation.Load() == gen {
		s.store(ctx, gen, summary)
	}
	return summary, nil
}

func (s *Service) store(ctx context.Context, gen uint64, summary Summary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.ttl); err != nil {
		s.log.Warn("dashboard cache write failed", zap.Error(err))
		return
	}
	// An Invalidate that landed between the check and the write may have
	// deleted before our Set.
	if s.generation.Load() != gen {
		s.Invalidate(ctx)
	}
}

// Invalidate drops the cached summary. Employee writes call it.
func (s *Service) Invalidate(ctx context.Context) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.log.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}

func (s *Service) Badges(ctx context.Context, user auth.UserContext) (Badges, error) {
	summary, err := s.Get(ctx)
	if err != nil {
		return Badges{}, err
	}
	out := Badges{ActiveEmployees: summary.Active}
	if s.announcements != nil {
		unread, err := s.announcements.UnreadCount(ctx, user)
		if err != nil {
			return Badges{}, err
		}
		out.UnreadAnnouncements = unread
	}
	return out, nil
}
