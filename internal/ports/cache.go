package ports

import (
	"context"
	"time"
)

// Cache is a volatile key-value store holding serialized values with a TTL.
//
// Get decodes the entry under key into dst and reports whether it was found.
// A payload that cannot be decoded is an error, not a miss. A ttl <= 0 passed
// to Set selects the adapter's default TTL. Deleting a missing key is not an
// error.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
