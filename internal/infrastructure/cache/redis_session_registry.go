package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bulkimport "github.com/fulfillment/backend/internal/application/import"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRegistry stores import results in Redis so they can be
// fetched after the fact from any instance. Results are keyed per
// organization; a lookup from another organization reports not found.
type RedisSessionRegistry struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSessionRegistry creates a session registry backed by Redis
func NewRedisSessionRegistry(cfg RedisConfig) (*RedisSessionRegistry, error) {
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

	return &RedisSessionRegistry{
		client:    client,
		keyPrefix: "import:session:",
	}, nil
}

// NewRedisSessionRegistryWithClient creates a registry with an existing Redis client
func NewRedisSessionRegistryWithClient(client *redis.Client, keyPrefix string) *RedisSessionRegistry {
	if keyPrefix == "" {
		keyPrefix = "import:session:"
	}
	return &RedisSessionRegistry{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// StoreResult stores an import result with the given TTL
func (r *RedisSessionRegistry) StoreResult(ctx context.Context, organizationID uuid.UUID, result *bulkimport.Result, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize import result: %w", err)
	}

	key := r.key(organizationID, result.ImportID)
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store import result: %w", err)
	}
	return nil
}

// GetResult fetches a stored import result for the organization
func (r *RedisSessionRegistry) GetResult(ctx context.Context, organizationID, importID uuid.UUID) (*bulkimport.Result, error) {
	payload, err := r.client.Get(ctx, r.key(organizationID, importID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.NewNotFoundError("IMPORT_NOT_FOUND", "Import session not found")
		}
		return nil, fmt.Errorf("failed to fetch import result: %w", err)
	}

	var result bulkimport.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize import result: %w", err)
	}
	return &result, nil
}

// Close closes the underlying Redis connection
func (r *RedisSessionRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisSessionRegistry) key(organizationID, importID uuid.UUID) string {
	return r.keyPrefix + organizationID.String() + ":" + importID.String()
}

// Ensure RedisSessionRegistry implements SessionRegistry
var _ bulkimport.SessionRegistry = (*RedisSessionRegistry)(nil)
