package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

var _ ports.Cache = (*RedisCache)(nil)

// RedisCache relies on go-redis' pooled client, which is safe for concurrent
// use, so calls are not serialized here.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

func NewRedisCache(client *redis.Client, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, defaultTTL: defaultTTL}
}

func (r *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to get %s from cache: %w", domain.ErrInternalCache, key, err)
	}
	if err := decode(key, data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, resolveTTL(ttl, r.defaultTTL)).Err(); err != nil {
		return fmt.Errorf("%w: failed to store %s to cache: %w", domain.ErrInternalCache, key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete %s from cache: %w", domain.ErrInternalCache, key, err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping failed: %w", domain.ErrInternalCache, err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
