package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

// CacheRepository stores JSON payloads in Redis.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes cached entries whose key starts with prefix.
func (r *CacheRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
		r.logger.Debug("cache key evicted", zap.String("key", key))
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan prefix %s: %w", prefix, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// MemoryCacheRepository keeps JSON payloads in process memory. It serves
// single-instance deployments running without Redis.
type MemoryCacheRepository struct {
	store *gocache.Cache
}

// NewMemoryCacheRepository wraps a go-cache store.
func NewMemoryCacheRepository(store *gocache.Cache) *MemoryCacheRepository {
	return &MemoryCacheRepository{store: store}
}

// Get retrieves and unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.store.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores a JSON copy of value so later mutations by the caller are not visible.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPrefix removes entries whose key starts with prefix.
func (r *MemoryCacheRepository) DeleteByPrefix(_ context.Context, prefix string) error {
	for key := range r.store.Items() {
		if strings.HasPrefix(key, prefix) {
			r.store.Delete(key)
		}
	}
	return nil
}

// Ping always succeeds.
func (r *MemoryCacheRepository) Ping(context.Context) error { return nil }

// Close flushes the store.
func (r *MemoryCacheRepository) Close() error {
	r.store.Flush()
	return nil
}
