// Package cache implements ports.Cache on Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// DefaultPrefix namespaces every key written by this service.
const DefaultPrefix = "blogdraft:"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis is a ports.Cache and ports.HealthChecker backed by go-redis.
type Redis struct {
	client *redis.Client
	prefix string
}

var (
	_ ports.Cache         = (*Redis)(nil)
	_ ports.HealthChecker = (*Redis)(nil)
)

// NewRedis creates a client. It does not dial until the first command.
func NewRedis(cfg Config) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix)
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("cache entry", key)
	}

	if err != nil {
		return nil, domain.NewUnavailableError("redis", err)
	}

	return val, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return domain.NewUnavailableError("redis", err)
	}

	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return domain.NewUnavailableError("redis", err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (r *Redis) Name() string { return "redis" }

// Check implements ports.HealthChecker.
func (r *Redis) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
