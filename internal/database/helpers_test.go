package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kdimtricp/emostim/internal/logging"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		Logger:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// setupPostgresDB starts a throwaway PostgreSQL container. Set
// EMOSTIM_PG_TESTS=1 to enable; it needs a Docker daemon.
func setupPostgresDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("EMOSTIM_PG_TESTS") != "1" {
		t.Skip("EMOSTIM_PG_TESTS not set")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("emostim_test"),
		postgres.WithUsername("emostim_test"),
		postgres.WithPassword("emostim_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := NewDB(Config{
		Type:     "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     "emostim_test",
		Password: "emostim_test_password",
		Name:     "emostim_test",
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// dialects runs fn against every database available to the test run.
func dialects(t *testing.T, fn func(t *testing.T, db *DB)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, setupTestDB(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, setupPostgresDB(t)) })
}
