package storage

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migrationsDir is the directory inside embeddedMigrations
const migrationsDir = "migrations"

// runMigrations applies all pending goose migrations
func (s *Storage) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, s.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version
func (s *Storage) SchemaVersion(ctx context.Context) (int64, error) {
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, s.db)
}
