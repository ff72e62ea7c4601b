package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ems/internal/platform/metrics"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestMemoryDeliversByTopic(t *testing.T) {
	hub := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	employees, err := hub.Subscribe(ctx, TopicEmployees)
	require.NoError(t, err)
	projects, err := hub.Subscribe(ctx, TopicProjects)
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, Event{Topic: TopicEmployees, Type: EventCreated, ID: "e1"}))

	evt := receive(t, employees)
	require.Equal(t, "e1", evt.ID)
	select {
	case <-projects:
		t.Fatal("projects subscriber received an employees event")
	default:
	}
}

func TestMemoryClosesOnCancel(t *testing.T) {
	hub := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Subscribe(ctx, TopicAnnouncements)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestMemoryRejectsUnknownTopic(t *testing.T) {
	_, err := NewMemory().Subscribe(context.Background(), "payroll")
	require.Error(t, err)
}

func TestMemoryClose(t *testing.T) {
	hub := NewMemory()
	ch, err := hub.Subscribe(context.Background(), TopicProjects)
	require.NoError(t, err)
	require.NoError(t, hub.Close())

	_, ok := <-ch
	require.False(t, ok)
	require.ErrorIs(t, hub.Publish(context.Background(), Event{Topic: TopicProjects}), ErrClosed)
}

func TestNotifyStampsTimeThroughInstrumentedHub(t *testing.T) {
	m := metrics.New()
	hub := WithMetrics(NewMemory(), m)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := hub.Subscribe(ctx, TopicEmployees)
	require.NoError(t, err)

	Notify(ctx, hub, nil, Event{Topic: TopicEmployees, Type: EventDeleted, ID: "e9"})

	evt := receive(t, ch)
	require.False(t, evt.At.IsZero())
	require.Equal(t, EventDeleted, evt.Type)
}
