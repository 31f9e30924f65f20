package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/recurrence"
	"github.com/example/tutoring-scheduler/internal/scheduler"
)

// MaterializerService turns active enrollments into concrete lessons for a
// target week. Runs are idempotent: the dedup index, seeded from already
// booked lessons and backed by the storage uniqueness constraint, makes a
// rerun of the same week a no-op.
type MaterializerService struct {
	enrollments persistence.EnrollmentRepository
	lessons     persistence.LessonRepository
	engine      *recurrence.Engine
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMaterializerService wires dependencies for materialization runs.
func NewMaterializerService(enrollments persistence.EnrollmentRepository, lessons persistence.LessonRepository, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MaterializerService {
	if location == nil {
		location = time.UTC
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MaterializerService{
		enrollments: enrollments,
		lessons:     lessons,
		engine:      recurrence.NewEngine(location),
		location:    location,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// MaterializeWeek generates and persists the lessons for the week containing
// params.WeekOf. The batch is written atomically; a concurrent run over the
// same week surfaces as ErrAlreadyExists and can be retried safely.
func (s *MaterializerService) MaterializeWeek(ctx context.Context, params MaterializeParams) (result MaterializeRunResult, err error) {
	if s == nil {
		err = fmt.Errorf("MaterializerService is nil")
		return
	}
	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.enrollments == nil || s.lessons == nil {
		err = fmt.Errorf("materializer repositories not configured")
		return
	}

	reference := params.WeekOf
	if reference.IsZero() {
		reference = s.now()
	}
	weekStart := civil.WeekStart(reference.In(s.location), s.location)
	weekEnd := civil.WeekEnd(weekStart)

	logger := serviceLogger(ctx, s.logger, "MaterializerService", "MaterializeWeek",
		"week_start", weekStart.Format(time.RFC3339),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "materialization failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"created", len(result.Created),
			"skipped", len(result.Skipped),
		).InfoContext(ctx, "materialization completed")
	}()

	var enrollments []persistence.Enrollment
	enrollments, err = s.enrollments.ListEnrollments(ctx, persistence.EnrollmentFilter{})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	plans := make([]scheduler.EnrollmentPlan, 0, len(enrollments))
	for _, enrollment := range enrollments {
		plans = append(plans, planFromEnrollment(enrollment))
	}

	// The dedup key only collides within a minute, so lessons just outside the
	// week cannot matter; a one-day margin covers zone skew between the local
	// week and stored UTC instants.
	after := weekStart.Add(-24 * time.Hour)
	before := weekEnd.Add(24 * time.Hour)
	var booked []persistence.Lesson
	booked, err = s.lessons.ListLessons(ctx, persistence.LessonFilter{StartsAfter: &after, EndsBefore: &before})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	existing := make([]scheduler.BookedSession, 0, len(booked))
	for _, lesson := range booked {
		existing = append(existing, scheduler.BookedSession{
			StudentID: lesson.StudentID,
			TutorID:   lesson.TutorID,
			StartsAt:  lesson.StartsAt,
		})
	}

	run := scheduler.Materialize(s.engine, weekStart, plans, existing)
	for _, sk := range run.Skipped {
		logger.WarnContext(ctx, "enrollment skipped", "enrollment_id", sk.EnrollmentID, "reason", sk.Reason)
	}

	now := s.now()
	records := make([]persistence.Lesson, 0, len(run.Created))
	for _, session := range run.Created {
		enrollmentID := session.EnrollmentID
		records = append(records, persistence.Lesson{
			ID:                s.idGenerator(),
			EnrollmentID:      &enrollmentID,
			StudentID:         session.StudentID,
			TutorID:           session.TutorID,
			StartsAt:          session.StartsAt,
			StartsAtMinute:    session.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339),
			DurationHours:     session.DurationHours,
			MeetingResourceID: session.MeetingResourceID,
			Status:            LessonStatusActive,
			Summary:           session.Summary,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	if err = s.lessons.InsertLessons(ctx, records); err != nil {
		err = mapRepoError(err)
		return
	}

	created := make([]Lesson, 0, len(records))
	for _, record := range records {
		created = append(created, lessonFromRecord(record))
	}
	result = MaterializeRunResult{WeekStart: weekStart, Created: created, Skipped: run.Skipped}
	return
}

// planFromEnrollment converts a stored enrollment into a materialization plan.
// Parse failures are deferred to the engine, which reports them per slot
// without aborting the batch.
func planFromEnrollment(enrollment persistence.Enrollment) scheduler.EnrollmentPlan {
	frequency, _ := recurrence.ParseFrequency(enrollment.Frequency)

	slots := make([]recurrence.Slot, 0, len(enrollment.Slots))
	for _, stored := range enrollment.Slots {
		slot, err := slotFromInput(SlotInput{Weekday: stored.Weekday, StartTime: stored.StartTime, EndTime: stored.EndTime})
		if err != nil {
			// Keep the raw slot; the engine validates again and reports the
			// enrollment as skipped instead of silently dropping it.
			slot = recurrence.Slot{Day: time.Weekday(stored.Weekday)}
		}
		slots = append(slots, slot)
	}

	return scheduler.EnrollmentPlan{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		TutorID:      enrollment.TutorID,
		Rule: recurrence.Rule{
			EnrollmentID: enrollment.ID,
			Slots:        slots,
			Frequency:    frequency,
			StartsOn:     enrollment.StartDate,
			EndsOn:       cloneTime(enrollment.EndDate),
		},
		DurationHours:     enrollment.DurationHours,
		MeetingResourceID: cloneStringPtr(enrollment.MeetingResourceID),
		Paused:            enrollment.Paused,
		Summary:           enrollment.Summary,
	}
}
