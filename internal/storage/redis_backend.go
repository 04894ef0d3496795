package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions locates the Redis hash that holds client state.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the hash key, e.g. per device or user profile.
	Prefix string
}

// RedisBackend keeps every key as a field of one hash, so a profile can be
// inspected or dropped with a single HGETALL or DEL.
type RedisBackend struct {
	client *redis.Client
	hash   string
}

// NewRedisBackend connects lazily; Initialize verifies the connection.
func NewRedisBackend(opts RedisOptions) *RedisBackend {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "fuelcoach:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		// One process, a handful of keys.
		PoolSize: 2,
	})
	return &RedisBackend{client: client, hash: prefix + "state"}
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Initialize(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", r.client.Options().Addr, err)
	}
	return nil
}

func (r *RedisBackend) Close() error { return r.client.Close() }

func (r *RedisBackend) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.HGet(ctx, r.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &ErrNotFound{Key: key}
	}
	return data, err
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return r.client.HSet(ctx, r.hash, key, value).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.HDel(ctx, r.hash, key).Err()
}

func (r *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.client.HKeys(ctx, r.hash).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
