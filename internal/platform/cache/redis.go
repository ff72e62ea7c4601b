package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ems/internal/platform/config"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Connect returns nil when REDIS_ADDR is unset or the server does not answer
// a ping, so callers fall back to the in-memory cache and hub.
func Connect(ctx context.Context, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("unable to reach redis, using in-memory fallback", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return client
}

type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return value, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.prefix + key
	}
	return r.client.Del(ctx, full...).Err()
}
