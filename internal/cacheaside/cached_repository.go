// Package cacheaside layers read-through and invalidate-on-write caching over
// a ports.Repository.
//
// The cache is never a dependency for correctness: cache failures on the read
// path fall through to the store, and cache failures after a successful write
// are recorded but never returned. Store errors are always returned as-is.
package cacheaside

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

// ProductsKey holds the serialized result of ReadAll. Per-record keys are
// ProductsKey + ":" + id. Other processes sharing the cache rely on this
// exact scheme.
const ProductsKey = "products"

func ProductKey(id uuid.UUID) string {
	return ProductsKey + ":" + id.String()
}

const (
	DefaultTTL          = time.Hour
	DefaultCacheTimeout = 250 * time.Millisecond
)

type Option func(*CachedRepository)

// WithTTL sets the TTL used when populating entries on a miss.
func WithTTL(ttl time.Duration) Option {
	return func(r *CachedRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCacheTimeout bounds each individual cache call. Zero disables the bound
// and leaves only the caller's deadline.
func WithCacheTimeout(d time.Duration) Option {
	return func(r *CachedRepository) {
		r.cacheTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *CachedRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

var _ ports.Repository = (*CachedRepository)(nil)

// CachedRepository holds no mutable state of its own; it is safe for
// concurrent use as long as the wrapped store and cache are.
type CachedRepository struct {
	store        ports.Repository
	cache        ports.Cache
	ttl          time.Duration
	cacheTimeout time.Duration
	logger       *slog.Logger
}

func New(store ports.Repository, cache ports.Cache, opts ...Option) *CachedRepository {
	r := &CachedRepository{
		store:        store,
		cache:        cache,
		ttl:          DefaultTTL,
		cacheTimeout: DefaultCacheTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CachedRepository) ReadAll(ctx context.Context) ([]domain.Product, error) {
	var cached []domain.Product
	if r.lookup(ctx, ProductsKey, &cached) {
		return cached, nil
	}

	products, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	r.populate(ctx, ProductsKey, products)
	return products, nil
}

func (r *CachedRepository) ReadOne(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	key := ProductKey(id)
	var cached domain.Product
	if r.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	product, err := r.store.ReadOne(ctx, id)
	if err != nil {
		return nil, err
	}
	// absence is not cached: a create under a fresh id must become visible at once
	if product != nil {
		r.populate(ctx, key, product)
	}
	return product, nil
}

func (r *CachedRepository) Create(ctx context.Context, product domain.ProductInput) (*domain.Product, error) {
	created, err := r.store.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, created.ID)
	return created, nil
}

func (r *CachedRepository) Update(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	updated, err := r.store.Update(ctx, id, product)
	if err != nil || updated == nil {
		return updated, err
	}
	r.invalidate(ctx, id)
	return updated, nil
}

func (r *CachedRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	found, err := r.store.Delete(ctx, id)
	if err != nil || !found {
		return found, err
	}
	r.invalidate(ctx, id)
	return true, nil
}

// lookup reports a hit only when the cache returned a decodable entry; any
// cache error is recorded and treated as a miss.
func (r *CachedRepository) lookup(ctx context.Context, key string, dst any) bool {
	cctx, cancel := r.cacheContext(ctx)
	defer cancel()
	found, err := r.cache.Get(cctx, key, dst)
	if err != nil {
		r.report(ctx, "get", key, err)
		return false
	}
	return found
}

func (r *CachedRepository) populate(ctx context.Context, key string, value any) {
	cctx, cancel := r.cacheContext(ctx)
	defer cancel()
	if err := r.cache.Set(cctx, key, value, r.ttl); err != nil {
		r.report(ctx, "set", key, err)
	}
}

func (r *CachedRepository) invalidate(ctx context.Context, id uuid.UUID) {
	for _, key := range []string{ProductKey(id), ProductsKey} {
		cctx, cancel := r.cacheContext(ctx)
		err := r.cache.Delete(cctx, key)
		cancel()
		if err != nil {
			r.report(ctx, "delete", key, err)
		}
	}
}

func (r *CachedRepository) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cacheTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cacheTimeout)
}

// report hands a non-fatal cache failure to the request's error container, or
// logs it when the caller did not install one.
func (r *CachedRepository) report(ctx context.Context, op, key string, err error) {
	cacheErr := &domain.Error{Kind: domain.KindCache, Op: fmt.Sprintf("cache %s %s", op, key), Cause: err}
	if c := domain.ErrorContainerFromContext(ctx); c != nil {
		c.Add(cacheErr)
		return
	}
	r.logger.WarnContext(ctx, "cache operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("err", domain.Loggable(err)),
	)
}
