package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

const migrationSuffix = ".up.sql"

// connErrorPatterns are substrings of driver errors caused by the network
// rather than by the SQL itself.
var connErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"connect: connection",
	"dial tcp",
	"EOF",
	"connection timed out",
	"server closed the connection unexpectedly",
	"could not connect",
}

// isConnectionError returns true if the error looks like a transient connection
// problem rather than a SQL syntax or constraint error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range connErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RunMigrations applies every *.up.sql file at the root of migrations in
// lexical order. Applied versions are tracked in schema_migrations and each
// file runs in its own transaction. Connection errors are retried, SQL errors
// are returned immediately.
func RunMigrations(ctx context.Context, db DBTX, migrations fs.FS, logger *slog.Logger) error {
	return withRetry(ctx, "run migrations", logger, isConnectionError, func() error {
		return runMigrationsOnce(ctx, db, migrations, logger)
	})
}

// PendingMigrations lists the *.up.sql files of migrations in apply order.
func PendingMigrations(migrations fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), migrationSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func runMigrationsOnce(ctx context.Context, db DBTX, migrations fs.FS, logger *slog.Logger) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	names, err := PendingMigrations(migrations)
	if err != nil {
		return err
	}

	for _, name := range names {
		var applied bool
		err := db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			logger.Debug("migration already applied", slog.String("version", name))
			continue
		}

		content, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		err = InTx(ctx, db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("execute migration %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		logger.Info("migration applied", slog.String("version", name))
	}

	return nil
}
