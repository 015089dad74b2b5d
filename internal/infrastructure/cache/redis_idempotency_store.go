package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "event:idempotency:"

// RedisConfig holds the connection settings for the cache-backed
// stores in this package.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisIdempotencyStore records processed event IDs in Redis so that
// multiple instances sharing an event stream deduplicate consistently.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

// NewRedisIdempotencyStore connects to Redis and verifies the
// connection with a ping before returning the store.
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: defaultIdempotencyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client, for
// tests or when a client is shared across components. An empty
// keyPrefix falls back to the default.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed records an event ID with a TTL. SETNX makes the check
// and the write a single atomic operation, so exactly one caller
// observes true for a given ID within the TTL window.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	wasSet, err := s.client.SetNX(ctx, s.keyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return wasSet, nil
}

// IsProcessed reports whether the event ID is still recorded.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}
	return exists > 0, nil
}

// Close releases the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// GetClient exposes the underlying client for monitoring.
func (s *RedisIdempotencyStore) GetClient() *redis.Client {
	return s.client
}
