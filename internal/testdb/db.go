//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/scry-sprint/internal/platform/postgres"
	"github.com/phrazzld/scry-sprint/internal/store"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds setup queries.
const TestTimeout = 30 * time.Second

var (
	migrateOnce sync.Once
	migrateErr  error
)

// DatabaseURL returns the integration database URL, or "" when none is
// configured.
func DatabaseURL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	return os.Getenv("SCRY_TEST_DB_URL")
}

// Open connects to the integration database and applies the embedded
// migrations once per process. The connection is closed on cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := DatabaseURL()
	if url == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "test database is not reachable")

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, "up", slog.Default())
	})
	require.NoError(t, migrateErr, "failed to migrate test database")
	return db
}

// WithTx runs fn with stores bound to a transaction that is always rolled
// back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, stores store.Stores)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, Bind(tx))
}

// Bind builds the postgres stores over a connection or transaction.
func Bind(db store.DBTX) store.Stores {
	logger := slog.Default()
	return store.Stores{
		Items:       postgres.NewItemStore(db, logger),
		Collections: postgres.NewCollectionStore(db, logger),
		Sessions:    postgres.NewSessionStore(db, logger),
		Grades:      postgres.NewGradeEventStore(db, logger),
		Profiles:    postgres.NewReminderProfileStore(db, logger),
	}
}
