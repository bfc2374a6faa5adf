package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-basecamp/testutil"
)

// TestMain applies all pending migrations to the test database once for the
// whole package. Without TEST_DATABASE_URL every test skips itself.
func TestMain(m *testing.M) {
	if dsn := os.Getenv(testutil.EnvDatabaseURL); dsn != "" {
		if _, err := testutil.Migrate(context.Background(), dsn); err != nil {
			log.Fatalf("TestMain: run migrations: %v", err)
		}
	}
	os.Exit(m.Run())
}

// newTestTx opens a transaction that is rolled back when the test finishes,
// giving per-test isolation without cleanup SQL.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}
