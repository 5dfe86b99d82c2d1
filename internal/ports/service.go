package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/pelyams/cached_product_service/internal/domain"
)

// ProductService returns *domain.Error values on failure; use errors.Is with
// domain.ErrNotFound / domain.ErrInvalidInput / domain.ErrInternalDb to branch.
type ProductService interface {
	Add(ctx context.Context, product domain.ProductInput) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Find(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Modify(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error)
	Patch(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	Remove(ctx context.Context, id uuid.UUID) error
}
