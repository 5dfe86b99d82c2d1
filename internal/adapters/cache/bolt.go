package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

const expiryPrefixLen = 8

var _ ports.Cache = (*BoltCache)(nil)

// BoltCache is a single-node persistent cache. Each value is stored as
// 8 bytes of big-endian unix-nano expiry followed by the JSON payload.
// Every call holds mu, so concurrent requests serialize on cache access.
type BoltCache struct {
	db         *bolt.DB
	bucket     []byte
	defaultTTL time.Duration
	mu         sync.RWMutex
	now        func() time.Time
}

// OpenBoltCache opens or creates the cache file at path.
func OpenBoltCache(path string, defaultTTL time.Duration) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", domain.ErrInternalCache, path, err)
	}
	bucket := []byte("products")
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to create bucket: %w", domain.ErrInternalCache, err)
	}
	return &BoltCache{db: db, bucket: bucket, defaultTTL: defaultTTL, now: time.Now}, nil
}

func (b *BoltCache) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BoltCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: get %s: %w", domain.ErrInternalCache, key, err)
	}
	b.mu.RLock()
	var payload []byte
	var expiresAt int64
	var expired bool
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) < expiryPrefixLen {
			payload = []byte{}
			return nil
		}
		expiresAt = int64(binary.BigEndian.Uint64(v[:expiryPrefixLen]))
		if b.now().UnixNano() >= expiresAt {
			expired = true
			return nil
		}
		// v is only valid inside the transaction
		payload = append([]byte(nil), v[expiryPrefixLen:]...)
		return nil
	})
	b.mu.RUnlock()
	if err != nil {
		return false, fmt.Errorf("%w: failed to read %s: %w", domain.ErrInternalCache, key, err)
	}
	if expired {
		// lazily drop the stale entry; a failure here only delays cleanup
		_ = b.dropExpired(key, expiresAt)
		return false, nil
	}
	if payload == nil {
		return false, nil
	}
	if err := decode(key, payload, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (b *BoltCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrInternalCache, key, err)
	}
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	return b.put(key, data, resolveTTL(ttl, b.defaultTTL))
}

func (b *BoltCache) put(key string, payload []byte, ttl time.Duration) error {
	buf := make([]byte, expiryPrefixLen+len(payload))
	binary.BigEndian.PutUint64(buf[:expiryPrefixLen], uint64(b.now().Add(ttl).UnixNano()))
	copy(buf[expiryPrefixLen:], payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), buf)
	}); err != nil {
		return fmt.Errorf("%w: failed to store %s: %w", domain.ErrInternalCache, key, err)
	}
	return nil
}

// dropExpired deletes key only while it still carries the expiry observed by
// the caller, so a value stored after that read is kept.
func (b *BoltCache) dropExpired(key string, observed int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		v := bucket.Get([]byte(key))
		if len(v) < expiryPrefixLen || int64(binary.BigEndian.Uint64(v[:expiryPrefixLen])) != observed {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *BoltCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrInternalCache, key, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("%w: failed to delete %s: %w", domain.ErrInternalCache, key, err)
	}
	return nil
}
