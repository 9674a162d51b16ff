// Package redisx implements session key/value storage in Redis, for clients
// that share a session across processes or hosts (kiosks, web sessions).
package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/storage"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

const defaultKeyPrefix = "citizen:session:"

// Store stores session keys in Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Store{
		client:    client,
		keyPrefix: prefix,
		logger:    logger.Named("redis_store"),
	}, nil
}

func (s *Store) key(key string) string {
	return s.keyPrefix + key
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}

	n, err := s.client.Del(ctx, prefixed...).Result()
	if err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	s.logger.Debug("Deleted session keys", zap.Int64("deleted", n))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
