package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stocktrail/internal/domain/events"
	"stocktrail/pkg/logger"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisInvalidator drops cached response keys after stock changes commit.
// Invalidation is best effort: a failed DEL only means a slightly longer
// TTL on a stale page, so errors are logged and swallowed.
type RedisInvalidator struct {
	client *redis.Client
}

var _ events.Invalidator = (*RedisInvalidator)(nil)

// NewRedisInvalidator connects to Redis and verifies the connection.
func NewRedisInvalidator(cfg Config) (*RedisInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisInvalidator{client: client}, nil
}

// Invalidate removes the given cache keys.
func (r *RedisInvalidator) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}

// Close releases the underlying connection.
func (r *RedisInvalidator) Close() error {
	return r.client.Close()
}
