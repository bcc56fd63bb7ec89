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

const variantTitleConstraint = "variants_title_key"

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	db database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(db database.DBTX) *VariantRepository {
	return &VariantRepository{db: db}
}

// Create inserts a variant type. Titles are unique.
func (r *VariantRepository) Create(ctx context.Context, v *domain.Variant) error {
	query := `INSERT INTO variants (id, title, active, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, v.ID, v.Title, v.Active, v.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, variantTitleConstraint) {
			return apperrors.Duplicate("variant", "title", v.Title)
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// GetByID retrieves a variant type by its ID.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	query := `SELECT id, title, active, created_at FROM variants WHERE id = $1`

	var v domain.Variant
	err := r.db.QueryRow(ctx, query, id).Scan(&v.ID, &v.Title, &v.Active, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// List returns variant types ordered by title, optionally active ones only.
func (r *VariantRepository) List(ctx context.Context, activeOnly bool) ([]domain.Variant, error) {
	query := `SELECT id, title, active, created_at FROM variants ORDER BY title, id`
	if activeOnly {
		query = `SELECT id, title, active, created_at FROM variants WHERE active ORDER BY title, id`
	}

	ctx, end := database.TraceQuery(ctx, "select variants", query)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	variants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Variant, error) {
		var v domain.Variant
		err := row.Scan(&v.ID, &v.Title, &v.Active, &v.CreatedAt)
		return v, err
	})
	end(err)
	if err != nil {
		return nil, fmt.Errorf("scan variants: %w", err)
	}
	return variants, nil
}
