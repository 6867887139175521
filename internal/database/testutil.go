package database

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDatabaseURLEnv names the variable that enables integration tests.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

var (
	sharedPool    *pgxpool.Pool
	sharedPoolErr error
	sharedOnce    sync.Once
)

// RequireTestDatabase skips t unless an integration database is configured
// and returns its URL.
func RequireTestDatabase(t *testing.T) string {
	t.Helper()

	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skip(TestDatabaseURLEnv + " not set, skipping integration test")
	}
	return url
}

// TestPool returns the migrated pool shared by every integration test in the
// binary. It is never closed; the process exit releases it.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := RequireTestDatabase(t)
	sharedOnce.Do(func() {
		ctx := context.Background()
		sharedPool, sharedPoolErr = Connect(ctx, url)
		if sharedPoolErr == nil {
			sharedPoolErr = RunMigrations(ctx, sharedPool)
		}
	})
	if sharedPoolErr != nil {
		t.Fatalf("failed to set up test database: %v", sharedPoolErr)
	}
	return sharedPool
}

// TestTx returns a transaction on the shared pool that is rolled back when
// the test ends. Repositories built on it see only their own writes, so
// tests can run in parallel against one database.
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	ctx := context.Background()
	tx, err := TestPool(t).Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin test transaction: %v", err)
	}
	// Parallel tests touching the same group row must fail instead of hanging.
	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '5s'"); err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("failed to set lock timeout: %v", err)
	}

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}
