package counterstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis is a shared counter store for deployments running several gateway
// instances against one limit budget.
type Redis struct {
	client *goredis.Client
}

// NewRedis connects to the Redis instance at url (redis:// form).
func NewRedis(url string) (*Redis, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: goredis.NewClient(opts)}, nil
}

// Close shuts down the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string) (int, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("redis counter %q not numeric: %w", key, err)
	}
	return n, nil
}

func (r *Redis) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) RemainingTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return -1, fmt.Errorf("redis ttl: %w", err)
	}
	// go-redis reports -1 (no expiry) and -2 (no key) as negative durations,
	// which already matches the store contract.
	return ttl, nil
}
