package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and the pgxmock
// pool. Repositories depend on it so the same code runs inside and outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn inside a transaction started on db. The transaction is
// committed when fn returns nil and rolled back otherwise. When db is already
// a pgx.Tx, Begin creates a savepoint.
func InTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// UniqueViolation is the SQLSTATE postgres returns for a unique constraint
// violation.
const UniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraint is not empty the violated constraint name must match too.
func IsUniqueViolation(err error, constraint string) bool {
	pgErr, ok := asPgError(err)
	if !ok || pgErr.Code != UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
