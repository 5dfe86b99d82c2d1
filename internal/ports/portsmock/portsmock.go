// Package portsmock provides testify mocks of the ports interfaces.
package portsmock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

var (
	_ ports.Repository     = (*Repository)(nil)
	_ ports.Cache          = (*Cache)(nil)
	_ ports.ProductService = (*ProductService)(nil)
)

type Repository struct {
	mock.Mock
}

func (m *Repository) Create(ctx context.Context, product domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *Repository) ReadAll(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *Repository) ReadOne(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *Repository) Update(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, product)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type Cache struct {
	mock.Mock
}

func (m *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *Cache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Fill returns a Run func that decodes value into the dst argument of a
// Cache.Get call, the way a real adapter would.
func Fill(value any) func(mock.Arguments) {
	return func(args mock.Arguments) {
		data, err := json.Marshal(value)
		if err != nil {
			panic(err)
		}
		if err := json.Unmarshal(data, args.Get(2)); err != nil {
			panic(err)
		}
	}
}

type ProductService struct {
	mock.Mock
}

func (m *ProductService) Add(ctx context.Context, product domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *ProductService) Find(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *ProductService) Modify(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, product)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *ProductService) Patch(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *ProductService) Remove(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
