package decisioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisBackend stores decisions as JSON values with a native Redis TTL.
type RedisBackend struct {
	client *redis.Client
	now    func() time.Time
	prefix string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisBackendWithClient(client, cfg.Prefix), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "moderator:decision:"
	}
	return &RedisBackend{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// GetDecision loads the entry stored under hash.
func (b *RedisBackend) GetDecision(ctx context.Context, hash string) (*model.DecisionEntry, error) {
	val, err := b.client.Get(ctx, b.prefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("decision %s: %w", hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry model.DecisionEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("redis decode: %w", err)
	}
	return &entry, nil
}

// UpsertDecision writes entry with a TTL matching its expiry. Entries that
// are already expired are not written.
func (b *RedisBackend) UpsertDecision(ctx context.Context, entry *model.DecisionEntry) error {
	ttl := entry.ExpiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}

	if err := b.client.Set(ctx, b.prefix+entry.InputHash, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeleteExpiredDecisions is a no-op: Redis expires keys on its own.
func (b *RedisBackend) DeleteExpiredDecisions(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
