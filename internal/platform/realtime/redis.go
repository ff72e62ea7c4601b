package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "ems:"

// Redis fans events out through Redis pub/sub so every API instance sees them.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedis(client *redis.Client, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, log: log}
}

func (r *Redis) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelPrefix+evt.Topic, payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	if !ValidTopic(topic) {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	pubsub := r.client.Subscribe(ctx, channelPrefix+topic)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					r.log.Warn("realtime payload decode failed", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the client is owned by the caller that created it.
func (r *Redis) Close() error {
	return nil
}
