package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// AuthSessionRepository implements persistence.AuthSessionRepository using
// SQLite.
type AuthSessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAuthSessionRepository creates a new SQLite auth-session repository.
func NewAuthSessionRepository(pool *ConnectionPool) *AuthSessionRepository {
	return &AuthSessionRepository{pool: pool, mapper: NewErrorMapper()}
}

const authSessionColumns = `id, user_id, token, expires_at, created_at, updated_at, revoked_at`

// CreateSession inserts a new authentication session.
func (r *AuthSessionRepository) CreateSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	if session.ID == "" || session.Token == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (`+authSessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.Format(time.RFC3339),
		session.UpdatedAt.Format(time.RFC3339),
		nullTimestamp(session.RevokedAt),
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by its opaque token.
func (r *AuthSessionRepository) GetSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+authSessionColumns+` FROM auth_sessions WHERE token = ?`, token)
	return r.scanSession(row)
}

// RevokeSession marks the session revoked and returns the updated row.
func (r *AuthSessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = ?, updated_at = ?
		WHERE token = ? AND revoked_at IS NULL`,
		revokedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		token,
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}
	if err := ensureRowAffected(result); err != nil {
		return persistence.AuthSession{}, err
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions whose expiry predates the reference
// instant.
func (r *AuthSessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.db.ExecContext(ctx,
		`DELETE FROM auth_sessions WHERE expires_at < ?`,
		reference.UTC().Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

func (r *AuthSessionRepository) scanSession(row rowScanner) (persistence.AuthSession, error) {
	var session persistence.AuthSession
	var expiresAt, createdAt, updatedAt string
	var revokedAt sql.NullString
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&expiresAt,
		&createdAt,
		&updatedAt,
		&revokedAt,
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}

	session.ExpiresAt = parseTimestamp(expiresAt)
	session.CreatedAt = parseTimestamp(createdAt)
	session.UpdatedAt = parseTimestamp(updatedAt)
	if revokedAt.Valid {
		t := parseTimestamp(revokedAt.String)
		session.RevokedAt = &t
	}
	return session, nil
}
