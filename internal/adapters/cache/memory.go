package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

// MemoryConfig sizes the in-process cache.
type MemoryConfig struct {
	// Capacity is the maximum number of entries before eviction kicks in.
	Capacity int
	// NumShards splits the keyspace so concurrent callers rarely contend.
	NumShards int
	// MaxTTL bounds the lifetime of every entry regardless of the TTL passed to Set.
	MaxTTL time.Duration
	// DefaultTTL is used when Set is called with ttl <= 0.
	DefaultTTL time.Duration
	// EvictionPercentage of entries dropped once Capacity is reached (1-100).
	EvictionPercentage int
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          64,
		MaxTTL:             24 * time.Hour,
		DefaultTTL:         DefaultTTL,
		EvictionPercentage: 10,
	}
}

// ConfigError reports an invalid adapter setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if c.DefaultTTL < 0 || c.DefaultTTL > c.MaxTTL {
		return &ConfigError{Field: "DefaultTTL", Message: "must be between 0 and MaxTTL"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

var _ ports.Cache = (*MemoryCache)(nil)

// MemoryCache keeps serialized entries in a sharded sturdyc client. sturdyc
// guards each shard with its own lock, so no extra locking is done here.
// Entries carry their own expiry so per-call TTLs shorter than MaxTTL hold.
type MemoryCache struct {
	client     *sturdyc.Client[memoryEntry]
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

func NewMemoryCache(cfg MemoryConfig) (*MemoryCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
	)
	return &MemoryCache{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		maxTTL:     cfg.MaxTTL,
		now:        time.Now,
	}, nil
}

func (m *MemoryCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: get %s: %w", domain.ErrInternalCache, key, err)
	}
	entry, ok := m.client.Get(key)
	if !ok {
		return false, nil
	}
	if !m.now().Before(entry.expiresAt) {
		m.client.Delete(key)
		return false, nil
	}
	if err := decode(key, entry.payload, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrInternalCache, key, err)
	}
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	ttl = min(resolveTTL(ttl, m.defaultTTL), m.maxTTL)
	m.client.Set(key, memoryEntry{payload: data, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrInternalCache, key, err)
	}
	m.client.Delete(key)
	return nil
}
