package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pelyams/cached_product_service/internal/domain"
)

// DefaultTTL applies when a caller passes ttl <= 0 and the adapter was built
// without an explicit default.
const DefaultTTL = time.Hour

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: error marshalling value for key %s: %w", domain.ErrInternalCache, key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: key %s: %w", domain.ErrCorruptCacheEntry, key, err)
	}
	return nil
}

func resolveTTL(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTTL
}
