package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// EnrollmentRepository implements persistence.EnrollmentRepository using
// SQLite. Availability slots live in a child table written inside the same
// transaction as the enrollment row.
type EnrollmentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewEnrollmentRepository creates a new SQLite enrollment repository.
func NewEnrollmentRepository(pool *ConnectionPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool, mapper: NewErrorMapper()}
}

const enrollmentColumns = `id, student_id, tutor_id, start_date, end_date, frequency,
	duration_hours, meeting_resource_id, paused, summary, created_at, updated_at`

// CreateEnrollment inserts a new enrollment with its slots.
func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	if enrollment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO enrollments (`+enrollmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			enrollment.ID,
			enrollment.StudentID,
			enrollment.TutorID,
			enrollment.StartDate.UTC().Format(time.RFC3339),
			nullTimestamp(enrollment.EndDate),
			enrollment.Frequency,
			enrollment.DurationHours,
			nullString(enrollment.MeetingResourceID),
			boolToInt(enrollment.Paused),
			enrollment.Summary,
			enrollment.CreatedAt.Format(time.RFC3339),
			enrollment.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertSlots(tx, enrollment.ID, enrollment.Slots)
	})
}

// UpdateEnrollment updates an enrollment and replaces its slots.
func (r *EnrollmentRepository) UpdateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	if enrollment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE enrollments
			SET student_id = ?, tutor_id = ?, start_date = ?, end_date = ?, frequency = ?,
				duration_hours = ?, meeting_resource_id = ?, paused = ?, summary = ?, updated_at = ?
			WHERE id = ?`,
			enrollment.StudentID,
			enrollment.TutorID,
			enrollment.StartDate.UTC().Format(time.RFC3339),
			nullTimestamp(enrollment.EndDate),
			enrollment.Frequency,
			enrollment.DurationHours,
			nullString(enrollment.MeetingResourceID),
			boolToInt(enrollment.Paused),
			enrollment.Summary,
			time.Now().UTC().Format(time.RFC3339),
			enrollment.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := ensureRowAffected(result); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM enrollment_slots WHERE enrollment_id = ?`, enrollment.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertSlots(tx, enrollment.ID, enrollment.Slots)
	})
}

// GetEnrollment retrieves an enrollment and its slots by ID.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (persistence.Enrollment, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`, id)
	enrollment, err := r.scanEnrollment(row)
	if err != nil {
		return persistence.Enrollment{}, err
	}

	slots, err := r.loadSlots(ctx, []string{id})
	if err != nil {
		return persistence.Enrollment{}, err
	}
	enrollment.Slots = slots[id]
	return enrollment, nil
}

// ListEnrollments returns enrollments matching the filter, slots included.
func (r *EnrollmentRepository) ListEnrollments(ctx context.Context, filter persistence.EnrollmentFilter) ([]persistence.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE 1=1`
	args := make([]any, 0, 4)
	if filter.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, filter.StudentID)
	}
	if filter.TutorID != "" {
		query += ` AND tutor_id = ?`
		args = append(args, filter.TutorID)
	}
	if filter.ActiveOn != nil {
		reference := filter.ActiveOn.UTC().Format(time.RFC3339)
		query += ` AND paused = 0 AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)`
		args = append(args, reference, reference)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var enrollments []persistence.Enrollment
	var ids []string
	for rows.Next() {
		enrollment, err := r.scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
		ids = append(ids, enrollment.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slots, err := r.loadSlots(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range enrollments {
		enrollments[i].Slots = slots[enrollments[i].ID]
	}
	return enrollments, nil
}

// DeleteEnrollment removes an enrollment; its slots cascade.
func (r *EnrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return ensureRowAffected(result)
}

func (r *EnrollmentRepository) insertSlots(tx *sql.Tx, enrollmentID string, slots []persistence.AvailabilitySlot) error {
	for i, slot := range slots {
		_, err := tx.Exec(`
			INSERT INTO enrollment_slots (enrollment_id, position, weekday, start_time, end_time)
			VALUES (?, ?, ?, ?, ?)`,
			enrollmentID, i, slot.Weekday, slot.StartTime, slot.EndTime,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *EnrollmentRepository) loadSlots(ctx context.Context, enrollmentIDs []string) (map[string][]persistence.AvailabilitySlot, error) {
	out := make(map[string][]persistence.AvailabilitySlot, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return out, nil
	}

	query := `SELECT enrollment_id, weekday, start_time, end_time FROM enrollment_slots
		WHERE enrollment_id IN (?` + repeatPlaceholder(len(enrollmentIDs)-1) + `)
		ORDER BY enrollment_id, position`
	args := make([]any, len(enrollmentIDs))
	for i, id := range enrollmentIDs {
		args[i] = id
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var slot persistence.AvailabilitySlot
		if err := rows.Scan(&id, &slot.Weekday, &slot.StartTime, &slot.EndTime); err != nil {
			return nil, r.mapper.MapError(err)
		}
		out[id] = append(out[id], slot)
	}
	return out, rows.Err()
}

func (r *EnrollmentRepository) scanEnrollment(row rowScanner) (persistence.Enrollment, error) {
	var enrollment persistence.Enrollment
	var startDate, createdAt, updatedAt string
	var endDate, resourceID sql.NullString
	var paused int
	err := row.Scan(
		&enrollment.ID,
		&enrollment.StudentID,
		&enrollment.TutorID,
		&startDate,
		&endDate,
		&enrollment.Frequency,
		&enrollment.DurationHours,
		&resourceID,
		&paused,
		&enrollment.Summary,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Enrollment{}, r.mapper.MapError(err)
	}

	enrollment.StartDate = parseTimestamp(startDate)
	if endDate.Valid {
		t := parseTimestamp(endDate.String)
		enrollment.EndDate = &t
	}
	enrollment.MeetingResourceID = stringPtr(resourceID)
	enrollment.Paused = paused != 0
	enrollment.CreatedAt = parseTimestamp(createdAt)
	enrollment.UpdatedAt = parseTimestamp(updatedAt)
	return enrollment, nil
}

func nullTimestamp(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
