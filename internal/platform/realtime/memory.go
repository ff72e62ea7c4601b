package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const subscriberBuffer = 16

var ErrClosed = errors.New("realtime hub closed")

// Memory is a single-process Hub. Slow subscribers miss events rather than
// block publishers.
type Memory struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: map[string]map[chan Event]struct{}{}}
}

func (m *Memory) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for ch := range m.subs[evt.Topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	if !ValidTopic(topic) {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	ch := make(chan Event, subscriberBuffer)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.subs[topic] == nil {
		m.subs[topic] = map[chan Event]struct{}{}
	}
	m.subs[topic][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[topic][ch]; ok {
			delete(m.subs[topic], ch)
			close(ch)
		}
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for topic, set := range m.subs {
		for ch := range set {
			close(ch)
		}
		delete(m.subs, topic)
	}
	return nil
}
