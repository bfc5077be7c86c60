package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"orgsync-api/core/logger"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations using the goose Provider API.
func Migrate(ctx context.Context, db *sql.DB) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("database: migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, subFS)
	if err != nil {
		return fmt.Errorf("database: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("database: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("Database:Migrate:Applied",
			"source", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}

	return nil
}
