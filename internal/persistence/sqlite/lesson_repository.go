package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// LessonRepository implements persistence.LessonRepository using SQLite.
type LessonRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewLessonRepository creates a new SQLite lesson repository.
func NewLessonRepository(pool *ConnectionPool) *LessonRepository {
	return &LessonRepository{pool: pool, mapper: NewErrorMapper()}
}

const lessonColumns = `id, enrollment_id, student_id, tutor_id, starts_at, starts_at_minute,
	duration_hours, meeting_resource_id, status, summary, created_at, updated_at`

// CreateLesson inserts a single lesson.
func (r *LessonRepository) CreateLesson(ctx context.Context, lesson persistence.Lesson) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.insertLesson(tx, lesson)
	})
}

// InsertLessons persists a materialization batch atomically. Any failure,
// including a dedup-index collision, rolls back the whole batch.
func (r *LessonRepository) InsertLessons(ctx context.Context, lessons []persistence.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, lesson := range lessons {
			if err := r.insertLesson(tx, lesson); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LessonRepository) insertLesson(tx *sql.Tx, lesson persistence.Lesson) error {
	if lesson.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	if lesson.UpdatedAt.IsZero() {
		lesson.UpdatedAt = now
	}
	if lesson.StartsAtMinute == "" {
		lesson.StartsAtMinute = lesson.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}

	_, err := tx.Exec(`
		INSERT INTO lessons (`+lessonColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lesson.ID,
		nullString(lesson.EnrollmentID),
		lesson.StudentID,
		lesson.TutorID,
		lesson.StartsAt.UTC().Format(time.RFC3339),
		lesson.StartsAtMinute,
		lesson.DurationHours,
		nullString(lesson.MeetingResourceID),
		lesson.Status,
		lesson.Summary,
		lesson.CreatedAt.Format(time.RFC3339),
		lesson.UpdatedAt.Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// UpdateLesson updates an existing lesson.
func (r *LessonRepository) UpdateLesson(ctx context.Context, lesson persistence.Lesson) error {
	if lesson.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if lesson.StartsAtMinute == "" {
		lesson.StartsAtMinute = lesson.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE lessons
		SET enrollment_id = ?, student_id = ?, tutor_id = ?, starts_at = ?, starts_at_minute = ?,
			duration_hours = ?, meeting_resource_id = ?, status = ?, summary = ?, updated_at = ?
		WHERE id = ?`,
		nullString(lesson.EnrollmentID),
		lesson.StudentID,
		lesson.TutorID,
		lesson.StartsAt.UTC().Format(time.RFC3339),
		lesson.StartsAtMinute,
		lesson.DurationHours,
		nullString(lesson.MeetingResourceID),
		lesson.Status,
		lesson.Summary,
		time.Now().UTC().Format(time.RFC3339),
		lesson.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return ensureRowAffected(result)
}

// GetLesson retrieves a lesson by ID.
func (r *LessonRepository) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	return r.scanLesson(row)
}

// ListLessons returns lessons matching the filter ordered by start instant.
func (r *LessonRepository) ListLessons(ctx context.Context, filter persistence.LessonFilter) ([]persistence.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE 1=1`
	args := make([]any, 0, 6)
	if filter.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, filter.StudentID)
	}
	if filter.TutorID != "" {
		query += ` AND tutor_id = ?`
		args = append(args, filter.TutorID)
	}
	if filter.EnrollmentID != "" {
		query += ` AND enrollment_id = ?`
		args = append(args, filter.EnrollmentID)
	}
	if filter.StartsAfter != nil {
		query += ` AND starts_at >= ?`
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		query += ` AND starts_at < ?`
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (?` + repeatPlaceholder(len(filter.Statuses)-1) + `)`
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY starts_at, id`

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var lessons []persistence.Lesson
	for rows.Next() {
		lesson, err := r.scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}

// DeleteFutureLessons removes not-yet-started lessons of an enrollment,
// leaving completed ones untouched. Used when an enrollment's schedule
// changes and its future plan must be rebuilt.
func (r *LessonRepository) DeleteFutureLessons(ctx context.Context, enrollmentID string, from time.Time) error {
	_, err := r.pool.db.ExecContext(ctx, `
		DELETE FROM lessons
		WHERE enrollment_id = ? AND starts_at >= ? AND status != 'complete'`,
		enrollmentID, from.UTC().Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

func (r *LessonRepository) scanLesson(row rowScanner) (persistence.Lesson, error) {
	var lesson persistence.Lesson
	var startsAt, createdAt, updatedAt string
	var enrollmentID, resourceID sql.NullString
	err := row.Scan(
		&lesson.ID,
		&enrollmentID,
		&lesson.StudentID,
		&lesson.TutorID,
		&startsAt,
		&lesson.StartsAtMinute,
		&lesson.DurationHours,
		&resourceID,
		&lesson.Status,
		&lesson.Summary,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Lesson{}, r.mapper.MapError(err)
	}

	lesson.EnrollmentID = stringPtr(enrollmentID)
	lesson.MeetingResourceID = stringPtr(resourceID)
	lesson.StartsAt = parseTimestamp(startsAt)
	lesson.CreatedAt = parseTimestamp(createdAt)
	lesson.UpdatedAt = parseTimestamp(updatedAt)
	return lesson, nil
}
