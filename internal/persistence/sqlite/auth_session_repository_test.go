package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

func setupAuthSessionTest(t *testing.T) *AuthSessionRepository {
	t.Helper()
	pool := setupTestPool(t)
	seedUser(t, pool, "user1", "u1@example.com", "student")
	return NewAuthSessionRepository(pool)
}

func TestAuthSessionRepository_CreateAndGet(t *testing.T) {
	repo := setupAuthSessionTest(t)
	ctx := context.Background()

	session := persistence.AuthSession{
		ID:        "sess1",
		UserID:    "user1",
		Token:     "token-abc",
		ExpiresAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	if _, err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	retrieved, err := repo.GetSession(ctx, "token-abc")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved.UserID != "user1" {
		t.Errorf("Expected user 'user1', got '%s'", retrieved.UserID)
	}
	if retrieved.RevokedAt != nil {
		t.Error("Expected fresh session to be unrevoked")
	}
}

func TestAuthSessionRepository_RevokeSession(t *testing.T) {
	repo := setupAuthSessionTest(t)
	ctx := context.Background()

	session := persistence.AuthSession{
		ID:        "sess1",
		UserID:    "user1",
		Token:     "token-abc",
		ExpiresAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	if _, err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	revokedAt := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	revoked, err := repo.RevokeSession(ctx, "token-abc", revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Errorf("Expected revoked at %v, got %v", revokedAt, revoked.RevokedAt)
	}

	// Revoking twice reports not found since the row is already revoked.
	if _, err := repo.RevokeSession(ctx, "token-abc", revokedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on double revoke, got %v", err)
	}
}

func TestAuthSessionRepository_DeleteExpiredSessions(t *testing.T) {
	repo := setupAuthSessionTest(t)
	ctx := context.Background()

	expired := persistence.AuthSession{
		ID:        "old",
		UserID:    "user1",
		Token:     "token-old",
		ExpiresAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	fresh := persistence.AuthSession{
		ID:        "new",
		UserID:    "user1",
		Token:     "token-new",
		ExpiresAt: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	for _, s := range []persistence.AuthSession{expired, fresh} {
		if _, err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	reference := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if err := repo.DeleteExpiredSessions(ctx, reference); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := repo.GetSession(ctx, "token-old"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected expired session removed, got %v", err)
	}
	if _, err := repo.GetSession(ctx, "token-new"); err != nil {
		t.Errorf("Expected fresh session to survive: %v", err)
	}
}
