package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationsFS returns the embedded migrations for a dialect
func MigrationsFS(dialect Dialect) (fs.FS, error) {
	return fs.Sub(migrationsFS, path.Join("migrations", dialect.MigrationsSubdir()))
}

// RunMigrations applies all pending embedded migrations for the connection's dialect
func (db *DB) RunMigrations(ctx context.Context, log *zap.Logger) error {
	fsys, err := MigrationsFS(db.Dialect)
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	provider, err := goose.NewProvider(db.Dialect.GooseDialect(), db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		log.Info("migration completed",
			zap.String("file", path.Base(r.Source.Path)),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}
