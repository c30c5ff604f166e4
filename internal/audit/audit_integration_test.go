package audit

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/svdh2/burnin-orchestrator/internal/status"
)

func runTestMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func TestPostgresSinkRecordsTransition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("burnin_audit_test"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	sink, err := Open(connStr, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sink.Close()

	if err := runTestMigrations(sink.db); err != nil {
		t.Fatalf("failed to run test migrations: %v", err)
	}

	sink.RecordTransition(ctx, "//pkg:flaky_test", status.StateBurningIn, status.StateStable, 50, 50, map[string]interface{}{"reason": "sprt_accept"})

	var count int
	row := sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transition_audit WHERE label = $1`, "//pkg:flaky_test")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected 1 audit row, got %d", count)
	}
}
