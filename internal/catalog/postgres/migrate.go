package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/araujobsd/ndmpd/internal/catalog/postgres/migrations"
)

// runMigrations applies the catalog schema, using golang-migrate's
// postgres advisory locks to serialize concurrent server instances.
func runMigrations(ctx context.Context, connString string, logger *slog.Logger) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("catalog/postgres: open for migration: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog/postgres: ping: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "catalog_schema_migrations",
		DatabaseName:    "catalog",
	})
	if err != nil {
		return fmt.Errorf("catalog/postgres: migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("catalog/postgres: migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("catalog/postgres: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("catalog/postgres: migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("catalog/postgres: migrate version: %w", err)
	}
	if dirty {
		logger.Warn("catalog schema is in a dirty migration state", "version", version)
	}
	return nil
}
