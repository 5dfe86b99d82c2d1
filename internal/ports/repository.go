package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/pelyams/cached_product_service/internal/domain"
)

// Repository is the persistent store contract. An absent record is reported
// as a nil product (or false from Delete), never as an error; errors are
// reserved for infrastructure failures.
type Repository interface {
	Create(ctx context.Context, product domain.ProductInput) (*domain.Product, error)
	ReadAll(ctx context.Context) ([]domain.Product, error)
	ReadOne(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
