package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

var _ ports.ProductService = (*ProductService)(nil)

// ProductService holds no state beyond the repository it was built with.
// Whether that repository is cached is decided by the caller of New.
type ProductService struct {
	repo ports.Repository
}

func New(repo ports.Repository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) Add(ctx context.Context, product domain.ProductInput) (*domain.Product, error) {
	const op = "add product"
	if err := product.Validate(); err != nil {
		return nil, domain.NewValidationError(op, err)
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, domain.NewRepositoryError(op, err)
	}
	return created, nil
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, domain.NewRepositoryError("list products", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *ProductService) Find(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	const op = "find product"
	product, err := s.repo.ReadOne(ctx, id)
	if err != nil {
		return nil, domain.NewRepositoryError(op, err)
	}
	if product == nil {
		return nil, domain.NewNotFoundError(op)
	}
	return product, nil
}

func (s *ProductService) Modify(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	const op = "modify product"
	if err := product.Validate(); err != nil {
		return nil, domain.NewValidationError(op, err)
	}
	return s.update(ctx, op, id, product)
}

// Patch merges the non-nil fields of patch into the current record and writes
// the result as a full replacement. Concurrent writers to the same id race;
// the last update wins.
func (s *ProductService) Patch(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	const op = "patch product"
	if err := patch.Validate(); err != nil {
		return nil, domain.NewValidationError(op, err)
	}
	current, err := s.repo.ReadOne(ctx, id)
	if err != nil {
		return nil, domain.NewRepositoryError(op, err)
	}
	if current == nil {
		return nil, domain.NewNotFoundError(op)
	}
	merged := patch.Apply(*current)
	if err := merged.Validate(); err != nil {
		return nil, domain.NewValidationError(op, err)
	}
	return s.update(ctx, op, id, merged)
}

func (s *ProductService) Remove(ctx context.Context, id uuid.UUID) error {
	const op = "remove product"
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return domain.NewRepositoryError(op, err)
	}
	if !found {
		return domain.NewNotFoundError(op)
	}
	return nil
}

func (s *ProductService) update(ctx context.Context, op string, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	updated, err := s.repo.Update(ctx, id, product)
	if err != nil {
		return nil, domain.NewRepositoryError(op, err)
	}
	if updated == nil {
		return nil, domain.NewNotFoundError(op)
	}
	return updated, nil
}
