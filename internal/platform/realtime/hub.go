// Package realtime fans record changes out to connected clients. Events carry
// only what changed and who changed it; clients re-fetch the record on receipt.
package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ems/internal/platform/metrics"
)

const (
	TopicEmployees     = "employees"
	TopicAnnouncements = "announcements"
	TopicProjects      = "projects"
)

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventRead    = "read"
)

var topics = map[string]struct{}{
	TopicEmployees:     {},
	TopicAnnouncements: {},
	TopicProjects:      {},
}

func ValidTopic(topic string) bool {
	_, ok := topics[topic]
	return ok
}

type Event struct {
	Topic   string    `json:"topic"`
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	ActorID string    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is the half of Hub the domain services need.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Hub delivers events per topic. Subscribe's channel is closed once ctx is done.
// Delivery order across publishers is not guaranteed; the last write wins.
type Hub interface {
	Publisher
	Subscribe(ctx context.Context, topic string) (<-chan Event, error)
	Close() error
}

// Notify publishes evt and logs, rather than returns, a failure.
func Notify(ctx context.Context, pub Publisher, log *zap.Logger, evt Event) {
	if pub == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if err := pub.Publish(ctx, evt); err != nil && log != nil {
		log.Warn("realtime publish failed",
			zap.String("topic", evt.Topic),
			zap.String("id", evt.ID),
			zap.Error(err))
	}
}

type instrumented struct {
	Hub
	metrics *metrics.Collector
}

// WithMetrics counts published events per topic.
func WithMetrics(h Hub, m *metrics.Collector) Hub {
	return instrumented{Hub: h, metrics: m}
}

func (i instrumented) Publish(ctx context.Context, evt Event) error {
	if err := i.Hub.Publish(ctx, evt); err != nil {
		return err
	}
	i.metrics.RealtimeEvent(evt.Topic)
	return nil
}
