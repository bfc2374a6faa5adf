// Package testutil holds the Postgres fixtures shared by the integration
// tests: connections to TEST_DATABASE_URL, the migrated schema, and trip and
// basecamp rows. Every helper skips the calling test when TEST_DATABASE_URL is
// not set, so unit test runs need no database.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql

	"github.com/pkordes/trip-basecamp/migrations"
)

// EnvDatabaseURL names the variable that opts a test run into integration tests.
const EnvDatabaseURL = "TEST_DATABASE_URL"

// Execer is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPool opens a pool on the test database, closed when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

var migrateOnce struct {
	sync.Once
	err error
}

// NewMigratedPool is NewPool on a schema brought up to date. Migrations run
// at most once per test binary.
func NewMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := requireDSN(t)
	migrateOnce.Do(func() {
		_, migrateOnce.err = Migrate(context.Background(), dsn)
	})
	if migrateOnce.err != nil {
		t.Fatalf("testutil.NewMigratedPool: %v", migrateOnce.err)
	}
	return NewPool(t)
}

// NewSQLDB opens a database/sql handle on the test database through the pgx
// driver, for goose. It is closed when the test finishes.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := openSQL(requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Migrate applies pending migrations to the database at dsn and returns how
// many ran. TestMain functions call it directly since they have no *testing.T.
func Migrate(ctx context.Context, dsn string) (int, error) {
	db, err := openSQL(dsn)
	if err != nil {
		return 0, fmt.Errorf("testutil.Migrate: %w", err)
	}
	defer db.Close()
	return migrations.Up(ctx, db)
}

// CreateTrip inserts a trip starting today and returns its id. The row is
// deleted when the test finishes, which also removes its basecamps; inside a
// transaction that is rolled back anyway the delete is harmless.
func CreateTrip(t *testing.T, db Execer) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO trips (id, name, start_date) VALUES ($1, $2, CURRENT_DATE)`,
		id, "Fixture trip "+id.String()[:8])
	if err != nil {
		t.Fatalf("testutil.CreateTrip: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM trips WHERE id = $1`, id)
	})
	return id
}

// WriteBasecamp sets the trip's shared basecamp directly, bumping its version
// the way an accepted write does. It bypasses the conflict check.
func WriteBasecamp(t *testing.T, db Execer, tripID uuid.UUID, address string) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO trip_basecamps (trip_id, address) VALUES ($1, $2)
		ON CONFLICT (trip_id) DO UPDATE
		SET address = EXCLUDED.address, version = trip_basecamps.version + 1, updated_at = now()`,
		tripID, address)
	if err != nil {
		t.Fatalf("testutil.WriteBasecamp: %v", err)
	}
}

func openSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skip(EnvDatabaseURL + " not set; skipping integration test")
	}
	return dsn
}
