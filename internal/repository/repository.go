package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/domain"
)

// ProductFilter defines filter criteria for listing products. Zero values
// disable a filter. The price range applies only when both bounds are set.
type ProductFilter struct {
	Title      string
	PriceFrom  *decimal.Decimal
	PriceTo    *decimal.Decimal
	VariantTag string
	CreatedOn  *time.Time
	Offset     int
	Limit      int
}

// HasPriceRange reports whether the price range filter applies.
func (f ProductFilter) HasPriceRange() bool {
	return f.PriceFrom != nil && f.PriceTo != nil
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	// Create inserts a product. A taken sku yields a DUPLICATE_VALUE error.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// SKUExists reports whether a product other than excludeID owns sku.
	SKUExists(ctx context.Context, sku, excludeID string) (bool, error)

	// Update modifies title, sku and description of an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// List returns the products matching filter, newest first.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)

	// Count returns how many products match filter, ignoring Offset and Limit.
	Count(ctx context.Context, filter ProductFilter) (int, error)
}

// VariantRepository defines persistence operations for option types.
type VariantRepository interface {
	Create(ctx context.Context, variant *domain.Variant) error
	GetByID(ctx context.Context, id string) (*domain.Variant, error)
	// List returns variants ordered by title.
	List(ctx context.Context, activeOnly bool) ([]domain.Variant, error)
}

// ProductVariantRepository defines persistence operations for the tags a
// product offers.
type ProductVariantRepository interface {
	Create(ctx context.Context, pv *domain.ProductVariant) error
	// Find returns the product's row for (variantID, tag) or ErrNotFound.
	Find(ctx context.Context, productID, variantID, tag string) (*domain.ProductVariant, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductVariant, error)
	// DeleteByIDs removes the given rows of productID.
	DeleteByIDs(ctx context.Context, productID string, ids []string) (int64, error)
	// DistinctTags returns every tag in use, sorted.
	DistinctTags(ctx context.Context) ([]string, error)
}

// PriceRepository defines persistence operations for price rows.
type PriceRepository interface {
	Create(ctx context.Context, price *domain.ProductVariantPrice) error
	GetByID(ctx context.Context, id string) (*domain.ProductVariantPrice, error)
	// Update writes slots, price and stock of an existing row.
	Update(ctx context.Context, price *domain.ProductVariantPrice) error
	// FindBySlots returns the product's row with exactly the given slot
	// combination or ErrNotFound.
	FindBySlots(ctx context.Context, productID string, slots [domain.MaxSlots]*string) (*domain.ProductVariantPrice, error)
	// ListByProducts returns the price rows of each product joined with their
	// slot tags, in creation order.
	ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.VariantPrice, error)
	// DeleteByVariantIDs removes the product's rows referencing any of ids in
	// any slot.
	DeleteByVariantIDs(ctx context.Context, productID string, ids []string) (int64, error)
}

// ImageRepository defines persistence operations for product images.
type ImageRepository interface {
	Create(ctx context.Context, image *domain.ProductImage) error
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error)
}

// Repositories groups every repository bound to one connection or
// transaction.
type Repositories struct {
	Products        ProductRepository
	Variants        VariantRepository
	ProductVariants ProductVariantRepository
	Prices          PriceRepository
	Images          ImageRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	// Repositories returns repositories that run each statement on its own.
	Repositories() Repositories

	// WithTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(r Repositories) error) error

	// Ping checks the backing database.
	Ping(ctx context.Context) error
}
