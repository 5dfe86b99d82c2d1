package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

// productRecord is the gorm row model. Timestamps stay in the store; the
// domain entity does not carry them.
type productRecord struct {
	ID          string    `gorm:"column:id;primaryKey;type:text"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	Price       int64     `gorm:"column:price;not null;check:price >= 0"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;index:products_updated_at_idx,sort:desc"`
}

func (productRecord) TableName() string { return "products" }

func (m productRecord) toDomain() (domain.Product, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: malformed id %q: %w", domain.ErrInternalDb, m.ID, err)
	}
	return domain.Product{ID: id, Name: m.Name, Description: m.Description, Price: m.Price}, nil
}

var _ ports.Repository = (*SQLiteRepository)(nil)

// SQLiteRepository is an embedded store for local runs and tests.
type SQLiteRepository struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database file at path. Use ":memory:" for
// a throwaway store.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite %s: %w", domain.ErrInternalDb, path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get sqlite handle: %w", domain.ErrInternalDb, err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY under load
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&productRecord{}); err != nil {
		return fmt.Errorf("%w: failed to migrate products: %w", domain.ErrInternalDb, err)
	}
	return nil
}

func (r *SQLiteRepository) Create(ctx context.Context, product domain.ProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	row := productRecord{
		ID:          uuid.NewString(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to store product: %w", domain.ErrInternalDb, err)
	}
	created, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]domain.Product, error) {
	var rows []productRecord
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to get all products: %w", domain.ErrInternalDb, err)
	}
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *SQLiteRepository) ReadOne(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var row productRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get product %s: %w", domain.ErrInternalDb, id, err)
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id uuid.UUID, product domain.ProductInput) (*domain.Product, error) {
	var row productRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&productRecord{}).Where("id = ?", id.String()).Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
			"updated_at":  time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id.String()).Take(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to update product %s: %w", domain.ErrInternalDb, id, err)
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&productRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("%w: failed to delete product %s: %w", domain.ErrInternalDb, id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
