//go:build integration

// Package testdb starts a disposable PostgreSQL container with the
// application schema applied.
package testdb

import (
	"context"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"nuclear/internal/database"
)

// Start runs postgres:17-alpine, connects through the given driver ("postgres"
// or "pgx") and applies the migrations. Everything is torn down by t.Cleanup.
func Start(t *testing.T, driver string) *database.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("nuclear"),
		postgres.WithUsername("nuclear"),
		postgres.WithPassword("nuclear"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = pg.Terminate(stopCtx)
	})

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	dialect := database.NewPostgresDialect()
	if driver == "pgx" {
		dialect = database.NewPgxDialect()
	}
	db, err := database.Open(dialect, database.DialectConfig{URL: uri})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(ctx, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
