package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// setupTestPool opens a temp-file database with the full schema applied.
func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	pool, err := Open("file:" + dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, pool *ConnectionPool, id, email, role string) {
	t.Helper()
	repo := NewUserRepository(pool)
	err := repo.CreateUser(context.Background(), persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  id,
		Role:         role,
		TimeZone:     "UTC",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("seed user %s failed: %v", id, err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := setupTestPool(t)

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}
