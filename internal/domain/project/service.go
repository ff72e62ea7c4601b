package project

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ems/internal/domain/access"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/platform/realtime"
	"ems/internal/platform/validate"
)

const entityType = "project"

type Service struct {
	store StoreAPI
	audit audit.Recorder
	pub   realtime.Publisher
	log   *zap.Logger
}

func NewService(store StoreAPI, recorder audit.Recorder, pub realtime.Publisher, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, audit: recorder, pub: pub, log: log}
}

func check(in *Input) error {
	in.Normalize()
	verr := validate.Struct(in)
	// YYYY-MM-DD compares correctly as a string.
	if in.StartDate != "" && in.EndDate != "" && in.EndDate < in.StartDate {
		verr = verr.Add("endDate", "must be on or after startDate")
	}
	return verr.Err()
}

func (s *Service) List(ctx context.Context, status string) ([]Project, error) {
	return s.store.List(ctx, status)
}

func (s *Service) Get(ctx context.Context, id string) (Project, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, user auth.UserContext, in Input) (Project, error) {
	if err := check(&in); err != nil {
		return Project{}, err
	}
	created, err := s.store.Create(ctx, Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   access.StampFor(user),
	})
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	s.afterWrite(ctx, user, audit.ActionCreate, realtime.EventCreated, created.ID, nil, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, user auth.UserContext, id string, in Input) (Project, error) {
	if err := check(&in); err != nil {
		return Project{}, err
	}
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if err := access.Check(user, before.CreatedBy); err != nil {
		return Project{}, err
	}
	updated, err := s.store.Update(ctx, id, in)
	if err != nil {
		return Project{}, err
	}
	s.afterWrite(ctx, user, audit.ActionUpdate, realtime.EventUpdated, id, before, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, user auth.UserContext, id string) error {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Check(user, before.CreatedBy); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, user, audit.ActionDelete, realtime.EventDeleted, id, before, nil)
	return nil
}

func (s *Service) afterWrite(ctx context.Context, user auth.UserContext, action, eventType, id string, before, after any) {
	if err := s.audit.Record(ctx, user.UserID, action, entityType, id, before, after); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.String("projectId", id), zap.Error(err))
	}
	realtime.Notify(ctx, s.pub, s.log, realtime.Event{
		Topic:   realtime.TopicProjects,
		Type:    eventType,
		ID:      id,
		ActorID: user.UserID,
	})
}
