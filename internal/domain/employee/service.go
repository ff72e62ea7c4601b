package employee

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ems/internal/domain/access"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/platform/metrics"
	"ems/internal/platform/realtime"
	"ems/internal/platform/validate"
)

const entityType = "employee"

// Invalidator drops derived views (the dashboard summary) after a write.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Deps struct {
	Audit     audit.Recorder
	Publisher realtime.Publisher
	Cache     Invalidator
	Metrics   *metrics.Collector
	Log       *zap.Logger
}

type Service struct {
	store StoreAPI
	deps  Deps
}

func NewService(store StoreAPI, deps Deps) *Service {
	if deps.Audit == nil {
		deps.Audit = audit.Discard
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Service{store: store, deps: deps}
}

// All returns every employee in store order.
func (s *Service) All(ctx context.Context) ([]Employee, error) {
	return s.store.List(ctx)
}

func (s *Service) List(ctx context.Context, c Criteria, page int) (ListResult, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	matching := Filter(all, c)
	p := Paginate(matching, page, PageSize)
	return ListResult{
		Items:         p.Items,
		Page:          p.Number,
		PageSize:      PageSize,
		TotalPages:    p.TotalPages,
		TotalMatching: len(matching),
		Total:         len(all),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, user auth.UserContext, in Input) (Employee, error) {
	in.Normalize()
	if err := validate.Struct(in).Err(); err != nil {
		return Employee{}, err
	}
	emp := in.apply(Employee{CreatedBy: access.StampFor(user)})
	created, err := s.store.Create(ctx, emp)
	if err != nil {
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	s.afterWrite(ctx, user, audit.ActionCreate, realtime.EventCreated, created.ID, nil, &created)
	return created, nil
}

// Update replaces the editable fields and recomputes fullName. The creator
// stamp is kept from the stored record.
func (s *Service) Update(ctx context.Context, user auth.UserContext, id string, in Input) (Employee, error) {
	in.Normalize()
	if err := validate.Struct(in).Err(); err != nil {
		return Employee{}, err
	}
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	updated, err := s.store.Update(ctx, in.apply(before))
	if err != nil {
		return Employee{}, fmt.Errorf("update employee: %w", err)
	}
	s.afterWrite(ctx, user, audit.ActionUpdate, realtime.EventUpdated, id, &before, &updated)
	return updated, nil
}

// Delete removes the record only for its creator or an admin. A refused
// delete never reaches the store.
func (s *Service) Delete(ctx context.Context, user auth.UserContext, id string) error {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Check(user, before.CreatedBy); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete employee: %w", err)
	}
	s.afterWrite(ctx, user, audit.ActionDelete, realtime.EventDeleted, id, &before, nil)
	return nil
}

func (s *Service) afterWrite(ctx context.Context, user auth.UserContext, action, eventType, id string, before, after *Employee) {
	if err := s.deps.Audit.Record(ctx, user.UserID, action, entityType, id, redacted(before), redacted(after)); err != nil {
		s.deps.Log.Warn("audit record failed", zap.String("action", action), zap.String("employeeId", id), zap.Error(err))
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate(ctx)
	}
	s.deps.Metrics.EmployeeWrite(action)
	realtime.Notify(ctx, s.deps.Publisher, s.deps.Log, realtime.Event{
		Topic:   realtime.TopicEmployees,
		Type:    eventType,
		ID:      id,
		ActorID: user.UserID,
	})
}

// redacted keeps salary out of the audit trail.
func redacted(emp *Employee) any {
	if emp == nil {
		return nil
	}
	out := *emp
	out.Salary = nil
	return out
}
