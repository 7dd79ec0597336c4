package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yamclicker/core/internal/infrastructure/config"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// RedisStore keeps every key as a plain redis string under an optional prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *logger.Logger
}

var _ ports.KeyValueStore = (*RedisStore)(nil)

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, prefix string, log *logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	store := NewRedisStoreWithClient(client, prefix, log)
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}
	return store, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, log *logger.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, logger: log.WithComponent("redis_store")}
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.LogStorageOperation("get", key, elapsedMillis(start), nil)
		return "", false, nil
	}
	r.logger.LogStorageOperation("get", key, elapsedMillis(start), err)
	if err != nil {
		return "", false, fmt.Errorf("get value: %w", err)
	}
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := r.client.Set(ctx, r.key(key), value, 0).Err()
	r.logger.LogStorageOperation("set", key, elapsedMillis(start), err)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := r.client.Del(ctx, r.key(key)).Err()
	r.logger.LogStorageOperation("delete", key, elapsedMillis(start), err)
	if err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
