package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL CHECK (name <> ''),
	description TEXT NOT NULL DEFAULT '',
	price       BIGINT NOT NULL CHECK (price >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS products_updated_at_idx ON products (updated_at DESC);
`

const productColumns = "id, name, description, price"

var _ ports.Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// dbError wraps err as an internal db failure. lib/pq reports a cancelled
// query as a server error (57014), so the context error is joined in to keep
// deadlines detectable with errors.Is.
func dbError(ctx context.Context, err error, msg string) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrInternalDb, msg, err)
}

// Migrate creates the products table if it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return dbError(ctx, err, "failed to apply schema")
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, product domain.ProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	var created domain.Product
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (id, name, description, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+productColumns,
		uuid.New(), product.Name, product.Description, product.Price, now,
	).Scan(&created.ID, &created.Name, &created.Description, &created.Price)
	if err != nil {
		return nil, dbError(ctx, err, "failed to store product")
	}
	return &created, nil
}

func (r *PostgresRepository) ReadAll(ctx context.Context) ([]domain.Product, error) {
	var products = make([]domain.Product, 0)
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, dbError(ctx, err, "failed to get all products")
	}
	defer rows.Close()
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price); err != nil {
			return nil, dbError(ctx, err, "failed to convert row into go type")
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError(ctx, err, "error while iterating over rows")
	}
	return products, nil
}

func (r *PostgresRepository) ReadOne(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	err := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&product.ID, &product.Name, &product.Description, &product.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError(ctx, err, "failed to get product "+id.String())
	}
	return &product, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	var updated domain.Product
	err := r.db.QueryRowContext(ctx,
		`UPDATE products SET name = $1, description = $2, price = $3, updated_at = $4
		WHERE id = $5
		RETURNING `+productColumns,
		product.Name, product.Description, product.Price, time.Now().UTC(), id,
	).Scan(&updated.ID, &updated.Name, &updated.Description, &updated.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError(ctx, err, "failed to update product "+id.String())
	}
	return &updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, dbError(ctx, err, "failed to delete product "+id.String())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to count deleted rows: %w", domain.ErrInternalDb, err)
	}
	return affected > 0, nil
}
