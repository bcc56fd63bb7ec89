package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/repository"
	"github.com/utafrali/product-catalog/pkg/database"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

const (
	productColumns       = `p.id, p.title, p.sku, p.description, p.created_at, p.updated_at`
	productSKUConstraint = "products_sku_key"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, title, sku, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "insert products", query)
	_, err := r.db.Exec(ctx, query, p.ID, p.Title, p.SKU, p.Description, p.CreatedAt, p.UpdatedAt)
	end(err)
	if err != nil {
		if database.IsUniqueViolation(err, productSKUConstraint) {
			return apperrors.Duplicate("product", "sku", p.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "select products", query)
	var p domain.Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.SKU, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	end(ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// SKUExists reports whether a product other than excludeID owns sku.
func (r *ProductRepository) SKUExists(ctx context.Context, sku, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1)`
	args := []any{sku}
	if excludeID != "" {
		query = `SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1 AND id <> $2)`
		args = append(args, excludeID)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product sku: %w", err)
	}
	return exists, nil
}

// Update modifies title, sku and description of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET title = $1, sku = $2, description = $3, updated_at = $4
		WHERE id = $5`

	ctx, end := database.TraceQuery(ctx, "update products", query)
	ct, err := r.db.Exec(ctx, query, p.Title, p.SKU, p.Description, p.UpdatedAt, p.ID)
	end(err)
	if err != nil {
		if database.IsUniqueViolation(err, productSKUConstraint) {
			return apperrors.Duplicate("product", "sku", p.SKU)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// List returns one page of products matching filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	where, args := productWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(filter.Offset, 0)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "select products", query)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.SKU, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			end(err)
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Count returns how many products match filter.
func (r *ProductRepository) Count(ctx context.Context, filter repository.ProductFilter) (int, error) {
	where, args := productWhere(filter)
	query := `SELECT COUNT(*) FROM products p ` + where

	ctx, end := database.TraceQuery(ctx, "count products", query)
	var total int
	err := r.db.QueryRow(ctx, query, args...).Scan(&total)
	end(err)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// productWhere builds the WHERE clause for filter. Every condition on child
// rows is an EXISTS sub-query so a product never appears twice.
func productWhere(filter repository.ProductFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Title != "" {
		conditions = append(conditions, "p.title ILIKE "+next("%"+likeEscaper.Replace(filter.Title)+"%"))
	}

	if filter.HasPriceRange() {
		from, to := next(filter.PriceFrom.String()), next(filter.PriceTo.String())
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM product_variant_prices pvp
			WHERE pvp.product_id = p.id AND pvp.price BETWEEN %s::numeric AND %s::numeric)`, from, to))
	}

	if filter.VariantTag != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM product_variant_prices pvp
			JOIN product_variants pv
			  ON pv.id IN (pvp.product_variant_one, pvp.product_variant_two, pvp.product_variant_three)
			WHERE pvp.product_id = p.id AND pv.variant_title = %s)`, next(filter.VariantTag)))
	}

	if filter.CreatedOn != nil {
		day := filter.CreatedOn.UTC().Truncate(24 * time.Hour)
		conditions = append(conditions, fmt.Sprintf("p.created_at >= %s AND p.created_at < %s",
			next(day), next(day.Add(24*time.Hour))))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func ignoreNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
