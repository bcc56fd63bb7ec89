package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/product-catalog/internal/repository"
	"github.com/utafrali/product-catalog/pkg/database"
)

// Pool is the connection pool surface the store needs. Both *pgxpool.Pool
// and the pgxmock pool satisfy it.
type Pool interface {
	database.DBTX
	Ping(ctx context.Context) error
}

// Store implements repository.Store on PostgreSQL.
type Store struct {
	pool Pool
}

// NewStore creates a store over pool.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

// Repositories returns repositories bound to the pool.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.pool)
}

// WithTx runs fn with every repository bound to one transaction.
func (s *Store) WithTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	return database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func newRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Products:        NewProductRepository(db),
		Variants:        NewVariantRepository(db),
		ProductVariants: NewProductVariantRepository(db),
		Prices:          NewPriceRepository(db),
		Images:          NewImageRepository(db),
	}
}
