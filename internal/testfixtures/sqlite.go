package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Users       persistence.UserRepository
	Resources   persistence.ResourceRepository
	Enrollments persistence.EnrollmentRepository
	Lessons     persistence.LessonRepository
	Sessions    persistence.AuthSessionRepository

	Pool *sqlite.ConnectionPool
}

// NewSQLiteHarness constructs a harness over a temporary, migrated database
// file. The connection is closed automatically when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "tutorhub.db")
	pool, err := sqlite.Open("file:" + path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Users:       sqlite.NewUserRepository(pool),
		Resources:   sqlite.NewResourceRepository(pool),
		Enrollments: sqlite.NewEnrollmentRepository(pool),
		Lessons:     sqlite.NewLessonRepository(pool),
		Sessions:    sqlite.NewAuthSessionRepository(pool),
		Pool:        pool,
	}
}
