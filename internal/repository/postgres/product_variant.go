package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/pkg/database"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

const productVariantTagConstraint = "product_variants_product_variant_tag_key"

// ProductVariantRepository implements repository.ProductVariantRepository
// using PostgreSQL.
type ProductVariantRepository struct {
	db database.DBTX
}

// NewProductVariantRepository creates a new PostgreSQL-backed product variant
// repository.
func NewProductVariantRepository(db database.DBTX) *ProductVariantRepository {
	return &ProductVariantRepository{db: db}
}

// Create inserts a product variant tag.
func (r *ProductVariantRepository) Create(ctx context.Context, pv *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, variant_id, variant_title, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, pv.ID, pv.ProductID, pv.VariantID, pv.VariantTitle, pv.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, productVariantTagConstraint) {
			return apperrors.AlreadyExists("product variant", "variant_title", pv.VariantTitle)
		}
		return fmt.Errorf("insert product variant: %w", err)
	}
	return nil
}

// Find returns the product's row for (variantID, tag).
func (r *ProductVariantRepository) Find(ctx context.Context, productID, variantID, tag string) (*domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, variant_id, variant_title, created_at
		FROM product_variants
		WHERE product_id = $1 AND variant_id = $2 AND variant_title = $3`

	var pv domain.ProductVariant
	err := r.db.QueryRow(ctx, query, productID, variantID, tag).Scan(
		&pv.ID, &pv.ProductID, &pv.VariantID, &pv.VariantTitle, &pv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product variant", tag)
		}
		return nil, fmt.Errorf("find product variant: %w", err)
	}
	return &pv, nil
}

// ListByProduct returns the product's tags in creation order.
func (r *ProductVariantRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, variant_id, variant_title, created_at
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product variants: %w", err)
	}
	defer rows.Close()

	pvs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductVariant, error) {
		var pv domain.ProductVariant
		err := row.Scan(&pv.ID, &pv.ProductID, &pv.VariantID, &pv.VariantTitle, &pv.CreatedAt)
		return pv, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan product variants: %w", err)
	}
	return pvs, nil
}

// DeleteByIDs removes the given tags of productID and reports how many rows
// went away.
func (r *ProductVariantRepository) DeleteByIDs(ctx context.Context, productID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM product_variants WHERE product_id = $1 AND id::text = ANY($2)`

	ctx, end := database.TraceQuery(ctx, "delete product_variants", query)
	ct, err := r.db.Exec(ctx, query, productID, ids)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("delete product variants: %w", err)
	}
	return ct.RowsAffected(), nil
}

// DistinctTags returns every tag in use, sorted.
func (r *ProductVariantRepository) DistinctTags(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT variant_title FROM product_variants ORDER BY variant_title`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list variant tags: %w", err)
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan variant tags: %w", err)
	}
	return tags, nil
}
