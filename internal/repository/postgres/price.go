package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/pkg/database"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

// Prices are read as text and parsed into decimal.Decimal so NUMERIC values
// keep their exact scale.
const priceColumns = `pvp.id, pvp.product_id, pvp.product_variant_one, pvp.product_variant_two,
	pvp.product_variant_three, pvp.price::text, pvp.stock, pvp.created_at, pvp.updated_at`

// PriceRepository implements repository.PriceRepository using PostgreSQL.
type PriceRepository struct {
	db database.DBTX
}

// NewPriceRepository creates a new PostgreSQL-backed price repository.
func NewPriceRepository(db database.DBTX) *PriceRepository {
	return &PriceRepository{db: db}
}

// Create inserts a price row.
func (r *PriceRepository) Create(ctx context.Context, p *domain.ProductVariantPrice) error {
	query := `
		INSERT INTO product_variant_prices
			(id, product_id, product_variant_one, product_variant_two, product_variant_three,
			 price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.ProductID, p.ProductVariantOne, p.ProductVariantTwo, p.ProductVariantThree,
		p.Price.String(), p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert price row: %w", err)
	}
	return nil
}

// GetByID retrieves a price row by its ID.
func (r *PriceRepository) GetByID(ctx context.Context, id string) (*domain.ProductVariantPrice, error) {
	query := `SELECT ` + priceColumns + ` FROM product_variant_prices pvp WHERE pvp.id = $1`

	p, err := scanPrice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("price row", id)
		}
		return nil, fmt.Errorf("get price row: %w", err)
	}
	return p, nil
}

// Update writes slots, price and stock of an existing row.
func (r *PriceRepository) Update(ctx context.Context, p *domain.ProductVariantPrice) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE product_variant_prices
		SET product_variant_one = $1, product_variant_two = $2, product_variant_three = $3,
		    price = $4::numeric, stock = $5, updated_at = $6
		WHERE id = $7 AND product_id = $8`

	ct, err := r.db.Exec(ctx, query,
		p.ProductVariantOne, p.ProductVariantTwo, p.ProductVariantThree,
		p.Price.String(), p.Stock, p.UpdatedAt, p.ID, p.ProductID,
	)
	if err != nil {
		return fmt.Errorf("update price row: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("price row", p.ID)
	}
	return nil
}

// FindBySlots returns the product's row with exactly the given slot
// combination.
func (r *PriceRepository) FindBySlots(ctx context.Context, productID string, slots [domain.MaxSlots]*string) (*domain.ProductVariantPrice, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM product_variant_prices pvp
		WHERE pvp.product_id = $1
		  AND pvp.product_variant_one IS NOT DISTINCT FROM $2::uuid
		  AND pvp.product_variant_two IS NOT DISTINCT FROM $3::uuid
		  AND pvp.product_variant_three IS NOT DISTINCT FROM $4::uuid
		ORDER BY pvp.created_at
		LIMIT 1`

	p, err := scanPrice(r.db.QueryRow(ctx, query, productID, slots[0], slots[1], slots[2]))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("price row", domain.SlotKey(slots))
		}
		return nil, fmt.Errorf("find price row: %w", err)
	}
	return p, nil
}

// ListByProducts returns the price rows of each product joined with their
// slot tags.
func (r *PriceRepository) ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.VariantPrice, error) {
	out := make(map[string][]domain.VariantPrice, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT ` + priceColumns + `,
		       COALESCE(v1.variant_title, ''), COALESCE(v2.variant_title, ''), COALESCE(v3.variant_title, '')
		FROM product_variant_prices pvp
		LEFT JOIN product_variants v1 ON v1.id = pvp.product_variant_one
		LEFT JOIN product_variants v2 ON v2.id = pvp.product_variant_two
		LEFT JOIN product_variants v3 ON v3.id = pvp.product_variant_three
		WHERE pvp.product_id::text = ANY($1)
		ORDER BY pvp.created_at, pvp.id`

	ctx, end := database.TraceQuery(ctx, "select product_variant_prices", query)
	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list price rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			vp    domain.VariantPrice
			price string
		)
		if err := rows.Scan(
			&vp.ID, &vp.ProductID, &vp.ProductVariantOne, &vp.ProductVariantTwo, &vp.ProductVariantThree,
			&price, &vp.Stock, &vp.CreatedAt, &vp.UpdatedAt,
			&vp.TagOne, &vp.TagTwo, &vp.TagThree,
		); err != nil {
			end(err)
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		if vp.Price, err = decimal.NewFromString(price); err != nil {
			end(err)
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		out[vp.ProductID] = append(out[vp.ProductID], vp)
	}
	err = rows.Err()
	end(err)
	if err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}
	return out, nil
}

// DeleteByVariantIDs removes the product's rows referencing any of ids.
func (r *PriceRepository) DeleteByVariantIDs(ctx context.Context, productID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		DELETE FROM product_variant_prices
		WHERE product_id = $1
		  AND (product_variant_one::text = ANY($2)
		    OR product_variant_two::text = ANY($2)
		    OR product_variant_three::text = ANY($2))`

	ct, err := r.db.Exec(ctx, query, productID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete price rows: %w", err)
	}
	return ct.RowsAffected(), nil
}

func scanPrice(row pgx.Row) (*domain.ProductVariantPrice, error) {
	var (
		p     domain.ProductVariantPrice
		price string
	)
	if err := row.Scan(
		&p.ID, &p.ProductID, &p.ProductVariantOne, &p.ProductVariantTwo, &p.ProductVariantThree,
		&price, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return &p, nil
}
