package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one ordered schema change. Statements run inside a single
// transaction together with the version bookkeeping row.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				display_name  TEXT NOT NULL,
				role          TEXT NOT NULL CHECK (role IN ('admin', 'tutor', 'student')),
				time_zone     TEXT NOT NULL DEFAULT 'UTC',
				password_hash TEXT NOT NULL,
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS meeting_resources (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL UNIQUE,
				external_link TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS enrollments (
				id                  TEXT PRIMARY KEY,
				student_id          TEXT NOT NULL REFERENCES users(id),
				tutor_id            TEXT NOT NULL REFERENCES users(id),
				start_date          TEXT NOT NULL,
				end_date            TEXT,
				frequency           TEXT NOT NULL,
				duration_hours      REAL NOT NULL CHECK (duration_hours > 0),
				meeting_resource_id TEXT REFERENCES meeting_resources(id),
				paused              INTEGER NOT NULL DEFAULT 0,
				summary             TEXT NOT NULL DEFAULT '',
				created_at          TEXT NOT NULL,
				updated_at          TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS enrollment_slots (
				enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
				position      INTEGER NOT NULL,
				weekday       INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
				start_time    TEXT NOT NULL,
				end_time      TEXT NOT NULL,
				PRIMARY KEY (enrollment_id, position)
			)`,
			`CREATE TABLE IF NOT EXISTS lessons (
				id                  TEXT PRIMARY KEY,
				enrollment_id       TEXT REFERENCES enrollments(id) ON DELETE SET NULL,
				student_id          TEXT NOT NULL REFERENCES users(id),
				tutor_id            TEXT NOT NULL REFERENCES users(id),
				starts_at           TEXT NOT NULL,
				starts_at_minute    TEXT NOT NULL,
				duration_hours      REAL NOT NULL CHECK (duration_hours > 0),
				meeting_resource_id TEXT REFERENCES meeting_resources(id),
				status              TEXT NOT NULL CHECK (status IN ('active', 'complete', 'cancelled', 'rescheduled', 'expired')),
				summary             TEXT NOT NULL DEFAULT '',
				created_at          TEXT NOT NULL,
				updated_at          TEXT NOT NULL
			)`,
			// The dedup key: re-materializing an already-processed week (or
			// two racing runs) trips this index instead of double-booking.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_lessons_dedup
				ON lessons (student_id, tutor_id, starts_at_minute)`,
			`CREATE INDEX IF NOT EXISTS idx_lessons_starts_at ON lessons (starts_at)`,
			`CREATE TABLE IF NOT EXISTS auth_sessions (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token      TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
		},
	},
}

// Migrate applies all pending migrations. Each migration runs in its own
// transaction and is recorded in schema_migrations, so a partially failed
// deploy can be retried safely.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := cp.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && int64(m.version) <= current.Int64 {
			continue
		}
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d failed: %w", m.version, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				m.version, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
