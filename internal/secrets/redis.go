package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultKeyPrefix namespaces target secret hashes
const DefaultKeyPrefix = "auto-deployer:secrets"

// RedisStore keeps per-target secrets in Redis hashes. Each target owns the
// hash "<prefix>:<lower(targetId)>"; secret keys are hash fields.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and returns a secret store
func NewRedisStore(addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info().
		Str("addr", addr).
		Int("db", db).
		Msg("Redis secret store connected successfully")

	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) hashKey(targetID string) string {
	return s.prefix + ":" + strings.ToLower(strings.TrimSpace(targetID))
}

// GetSecret returns a target secret. ok is false when it is not set.
func (s *RedisStore) GetSecret(ctx context.Context, targetID, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.hashKey(targetID), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get secret %s: %w", key, err)
	}
	return value, true, nil
}

// SetSecret stores a target secret
func (s *RedisStore) SetSecret(ctx context.Context, targetID, key, value string) error {
	if err := s.client.HSet(ctx, s.hashKey(targetID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set secret %s: %w", key, err)
	}
	return nil
}

// DeleteSecret removes a target secret
func (s *RedisStore) DeleteSecret(ctx context.Context, targetID, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(targetID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}

// Keys lists the secret keys stored for a target
func (s *RedisStore) Keys(ctx context.Context, targetID string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.hashKey(targetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	return keys, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
