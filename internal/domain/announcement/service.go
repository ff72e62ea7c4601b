package announcement

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

const entityType = "announcement"

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

// List returns announcements newest first.
func (s *Service) List(ctx context.Context) ([]Announcement, error) {
	return s.store.List(ctx)
}

func (s *Service) Create(ctx context.Context, user auth.UserContext, in Input) (Announcement, error) {
	in.Normalize()
	if err := validate.Struct(in).Err(); err != nil {
		return Announcement{}, err
	}
	created, err := s.store.Create(ctx, Announcement{
		Title:    in.Title,
		Content:  in.Content,
		Priority: in.Priority,
		Author:   access.StampFor(user),
	})
	if err != nil {
		return Announcement{}, fmt.Errorf("create announcement: %w", err)
	}
	s.afterWrite(ctx, user, audit.ActionCreate, realtime.EventCreated, created.ID, nil, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, user auth.UserContext, id string, in Input) (Announcement, error) {
	in.Normalize()
	if err := validate.Struct(in).Err(); err != nil {
		return Announcement{}, err
	}
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if err := access.Check(user, before.Author); err != nil {
		return Announcement{}, err
	}
	updated, err := s.store.Update(ctx, id, in)
	if err != nil {
		return Announcement{}, err
	}
	s.afterWrite(ctx, user, audit.ActionUpdate, realtime.EventUpdated, id, before, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, user auth.UserContext, id string) error {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Check(user, before.Author); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, user, audit.ActionDelete, realtime.EventDeleted, id, before, nil)
	return nil
}

// MarkRead is idempotent; only the first call for a user publishes an event.
func (s *Service) MarkRead(ctx context.Context, user auth.UserContext, id string) error {
	changed, err := s.store.MarkRead(ctx, id, user.UserID)
	if err != nil {
		return err
	}
	if changed {
		realtime.Notify(ctx, s.pub, s.log, realtime.Event{
			Topic:   realtime.TopicAnnouncements,
			Type:    realtime.EventRead,
			ID:      id,
			ActorID: user.UserID,
		})
	}
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, user auth.UserContext) (int, error) {
	return s.store.UnreadCount(ctx, user.UserID)
}

func (s *Service) afterWrite(ctx context.Context, user auth.UserContext, action, eventType, id string, before, after any) {
	if err := s.audit.Record(ctx, user.UserID, action, entityType, id, before, after); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.String("announcementId", id), zap.Error(err))
	}
	realtime.Notify(ctx, s.pub, s.log, realtime.Event{
		Topic:   realtime.TopicAnnouncements,
		Type:    eventType,
		ID:      id,
		ActorID: user.UserID,
	})
}
