package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/pkg/database"
)

// ImageRepository implements repository.ImageRepository using PostgreSQL.
type ImageRepository struct {
	db database.DBTX
}

// NewImageRepository creates a new PostgreSQL-backed image repository.
func NewImageRepository(db database.DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts an image row.
func (r *ImageRepository) Create(ctx context.Context, img *domain.ProductImage) error {
	query := `INSERT INTO product_images (id, product_id, file_path, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(ctx, query, img.ID, img.ProductID, img.FilePath, img.CreatedAt); err != nil {
		return fmt.Errorf("insert product image: %w", err)
	}
	return nil
}

// ListByProduct returns the product's images in upload order.
func (r *ImageRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, file_path, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductImage, error) {
		var img domain.ProductImage
		err := row.Scan(&img.ID, &img.ProductID, &img.FilePath, &img.CreatedAt)
		return img, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan product images: %w", err)
	}
	return images, nil
}
