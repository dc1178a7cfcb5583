// Package cache provides a read-through cache in front of the weekly
// code repository so the hot verify-code path rarely touches PostgreSQL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"creperie-promo/internal/domain"
	"creperie-promo/internal/observability"
)

const activeCodeKey = "promo:weekly_code:active"

// ErrCacheMiss is returned by Backend implementations when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Backend is the minimal key-value surface the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisBackend adapts a go-redis client to the Backend interface.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisBackend) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// WeeklyCodeCache decorates a WeeklyCodeRepository with a read-through
// cache for the active code. Cache failures are logged and fall through
// to the underlying repository; the cache never makes a request fail.
type WeeklyCodeCache struct {
	repo    domain.WeeklyCodeRepository
	backend Backend
	ttl     time.Duration
}

func NewWeeklyCodeCache(repo domain.WeeklyCodeRepository, backend Backend, ttl time.Duration) *WeeklyCodeCache {
	return &WeeklyCodeCache{
		repo:    repo,
		backend: backend,
		ttl:     ttl,
	}
}

func (c *WeeklyCodeCache) GetActive(ctx context.Context) (*domain.WeeklyCode, error) {
	cached, err := c.backend.Get(ctx, activeCodeKey)
	if err == nil {
		code := &domain.WeeklyCode{}
		if err := json.Unmarshal([]byte(cached), code); err == nil {
			observability.WeeklyCodeCacheResults.WithLabelValues("hit").Inc()
			return code, nil
		}
		slog.Debug("discarding unreadable cached weekly code")
	} else if !errors.Is(err, ErrCacheMiss) {
		slog.Debug("weekly code cache read failed", slog.String("error", err.Error()))
	}
	observability.WeeklyCodeCacheResults.WithLabelValues("miss").Inc()

	code, err := c.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(code); err == nil {
		if err := c.backend.Set(ctx, activeCodeKey, string(data), c.ttl); err != nil {
			slog.Debug("weekly code cache write failed", slog.String("error", err.Error()))
		}
	}
	return code, nil
}

// Ensure writes through to the repository and invalidates the cached
// active code so rotation is visible immediately.
func (c *WeeklyCodeCache) Ensure(ctx context.Context, weekStart, secretCode string) error {
	if err := c.repo.Ensure(ctx, weekStart, secretCode); err != nil {
		return err
	}
	if err := c.backend.Del(ctx, activeCodeKey); err != nil {
		slog.Debug("weekly code cache invalidation failed", slog.String("error", err.Error()))
	}
	return nil
}
