package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/recurrence"
	"github.com/example/tutoring-scheduler/internal/scheduler"
)

// EnrollmentService orchestrates recurring student-tutor pairings: validation,
// authorization, resource conflict rejection, and reconciliation of already
// materialized lessons when the schedule changes.
type EnrollmentService struct {
	enrollments persistence.EnrollmentRepository
	users       persistence.UserRepository
	resources   persistence.ResourceRepository
	lessons     persistence.LessonRepository
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEnrollmentService wires dependencies for enrollment operations.
func NewEnrollmentService(enrollments persistence.EnrollmentRepository, users persistence.UserRepository, resources persistence.ResourceRepository, lessons persistence.LessonRepository, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EnrollmentService {
	if location == nil {
		location = time.UTC
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EnrollmentService{
		enrollments: enrollments,
		users:       users,
		resources:   resources,
		lessons:     lessons,
		location:    location,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateEnrollment validates the pairing and persists it. A chosen meeting
// resource that is already claimed for an overlapping weekly window is a hard
// rejection, not a warning.
func (s *EnrollmentService) CreateEnrollment(ctx context.Context, params CreateEnrollmentParams) (enrollment Enrollment, err error) {
	if s == nil {
		err = fmt.Errorf("EnrollmentService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "EnrollmentService", "CreateEnrollment",
		"student_id", params.Input.StudentID,
		"tutor_id", params.Input.TutorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "enrollment creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("enrollment_id", enrollment.ID).InfoContext(ctx, "enrollment created")
	}()

	input := normalizeEnrollmentInput(params.Input)
	if !params.Principal.IsAdmin() && params.Principal.UserID != input.TutorID {
		err = ErrUnauthorized
		return
	}

	var slots []recurrence.Slot
	slots, err = s.validateEnrollmentInput(ctx, input)
	if err != nil {
		return
	}

	if err = s.ensureResourceFree(ctx, input.MeetingResourceID, slots, ""); err != nil {
		return
	}

	now := s.now()
	record := persistence.Enrollment{
		ID:                s.idGenerator(),
		StudentID:         input.StudentID,
		TutorID:           input.TutorID,
		Slots:             slotRecordsFromInputs(input.Slots),
		StartDate:         input.StartDate,
		EndDate:           cloneTime(input.EndDate),
		Frequency:         input.Frequency,
		DurationHours:     input.DurationHours,
		MeetingResourceID: cloneStringPtr(input.MeetingResourceID),
		Summary:           input.Summary,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if s.enrollments == nil {
		enrollment = enrollmentFromRecord(record)
		return
	}
	if err = s.enrollments.CreateEnrollment(ctx, record); err != nil {
		err = mapRepoError(err)
		return
	}
	enrollment = enrollmentFromRecord(record)
	return
}

// UpdateEnrollment applies validation and authorization before updating the
// pairing. A schedule-affecting change drops the enrollment's future lessons
// so the next materializer run rebuilds them from the new pattern.
func (s *EnrollmentService) UpdateEnrollment(ctx context.Context, params UpdateEnrollmentParams) (enrollment Enrollment, err error) {
	if s == nil {
		err = fmt.Errorf("EnrollmentService is nil")
		return
	}
	if s.enrollments == nil {
		err = fmt.Errorf("enrollment repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "EnrollmentService", "UpdateEnrollment",
		"enrollment_id", params.EnrollmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "enrollment update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "enrollment updated")
	}()

	var existing persistence.Enrollment
	existing, err = s.enrollments.GetEnrollment(ctx, params.EnrollmentID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if !params.Principal.IsAdmin() && params.Principal.UserID != existing.TutorID {
		err = ErrUnauthorized
		return
	}

	input := normalizeEnrollmentInput(params.Input)
	vErr := &ValidationError{}
	if input.StudentID != existing.StudentID {
		vErr.add("student_id", "the student cannot be changed")
	}
	if input.TutorID != existing.TutorID {
		vErr.add("tutor_id", "the tutor cannot be changed")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var slots []recurrence.Slot
	slots, err = s.validateEnrollmentInput(ctx, input)
	if err != nil {
		return
	}

	if err = s.ensureResourceFree(ctx, input.MeetingResourceID, slots, existing.ID); err != nil {
		return
	}

	updated := existing
	updated.Slots = slotRecordsFromInputs(input.Slots)
	updated.StartDate = input.StartDate
	updated.EndDate = cloneTime(input.EndDate)
	updated.Frequency = input.Frequency
	updated.DurationHours = input.DurationHours
	updated.MeetingResourceID = cloneStringPtr(input.MeetingResourceID)
	updated.Summary = input.Summary
	updated.UpdatedAt = s.now()

	if err = s.enrollments.UpdateEnrollment(ctx, updated); err != nil {
		err = mapRepoError(err)
		return
	}

	if scheduleChanged(existing, updated) {
		if err = s.dropFutureLessons(ctx, updated.ID); err != nil {
			return
		}
	}

	enrollment = enrollmentFromRecord(updated)
	return
}

// SetEnrollmentPaused pauses or resumes materialization for the pairing.
// Pausing leaves already materialized lessons alone; the materializer simply
// skips the enrollment until it resumes.
func (s *EnrollmentService) SetEnrollmentPaused(ctx context.Context, principal Principal, enrollmentID string, paused bool) (Enrollment, error) {
	if s == nil {
		return Enrollment{}, fmt.Errorf("EnrollmentService is nil")
	}
	if s.enrollments == nil {
		return Enrollment{}, fmt.Errorf("enrollment repository not configured")
	}

	existing, err := s.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, mapRepoError(err)
	}
	if !principal.IsAdmin() && principal.UserID != existing.TutorID {
		return Enrollment{}, ErrUnauthorized
	}

	if existing.Paused == paused {
		return enrollmentFromRecord(existing), nil
	}

	existing.Paused = paused
	existing.UpdatedAt = s.now()
	if err := s.enrollments.UpdateEnrollment(ctx, existing); err != nil {
		return Enrollment{}, mapRepoError(err)
	}
	return enrollmentFromRecord(existing), nil
}

// GetEnrollment returns one pairing visible to the principal.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, principal Principal, enrollmentID string) (Enrollment, error) {
	if s == nil {
		return Enrollment{}, fmt.Errorf("EnrollmentService is nil")
	}
	if s.enrollments == nil {
		return Enrollment{}, fmt.Errorf("enrollment repository not configured")
	}

	record, err := s.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, mapRepoError(err)
	}
	if !principal.IsAdmin() && principal.UserID != record.TutorID && principal.UserID != record.StudentID {
		return Enrollment{}, ErrUnauthorized
	}
	return enrollmentFromRecord(record), nil
}

// ListEnrollments enumerates pairings visible to the principal. Non-admin
// callers are always scoped to their own pairings.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, params ListEnrollmentsParams) ([]Enrollment, error) {
	if s == nil {
		return nil, fmt.Errorf("EnrollmentService is nil")
	}
	if s.enrollments == nil {
		return nil, nil
	}

	filter := persistence.EnrollmentFilter{
		StudentID: params.StudentID,
		TutorID:   params.TutorID,
		ActiveOn:  params.ActiveOn,
	}
	if !params.Principal.IsAdmin() {
		switch params.Principal.Role {
		case RoleTutor:
			filter.TutorID = params.Principal.UserID
		case RoleStudent:
			filter.StudentID = params.Principal.UserID
		default:
			return nil, ErrUnauthorized
		}
	}

	records, err := s.enrollments.ListEnrollments(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]Enrollment, 0, len(records))
	for _, record := range records {
		out = append(out, enrollmentFromRecord(record))
	}
	return out, nil
}

// DeleteEnrollment removes a pairing and its not-yet-taught lessons.
func (s *EnrollmentService) DeleteEnrollment(ctx context.Context, principal Principal, enrollmentID string) error {
	if s == nil {
		return fmt.Errorf("EnrollmentService is nil")
	}
	if s.enrollments == nil {
		return fmt.Errorf("enrollment repository not configured")
	}

	existing, err := s.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return mapRepoError(err)
	}
	if !principal.IsAdmin() && principal.UserID != existing.TutorID {
		return ErrUnauthorized
	}

	if err := s.dropFutureLessons(ctx, enrollmentID); err != nil {
		return err
	}
	if err := s.enrollments.DeleteEnrollment(ctx, enrollmentID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func (s *EnrollmentService) dropFutureLessons(ctx context.Context, enrollmentID string) error {
	if s.lessons == nil {
		return nil
	}
	if err := s.lessons.DeleteFutureLessons(ctx, enrollmentID, s.now()); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// validateEnrollmentInput checks the pairing's fields and returns the parsed
// slots on success.
func (s *EnrollmentService) validateEnrollmentInput(ctx context.Context, input EnrollmentInput) ([]recurrence.Slot, error) {
	vErr := &ValidationError{}

	if input.StudentID == "" {
		vErr.add("student_id", "a student is required")
	}
	if input.TutorID == "" {
		vErr.add("tutor_id", "a tutor is required")
	}
	if input.StudentID != "" && input.StudentID == input.TutorID {
		vErr.add("tutor_id", "the tutor and student must be different users")
	}

	if input.StartDate.IsZero() {
		vErr.add("start_date", "a start date is required")
	}
	if input.EndDate != nil && !input.StartDate.IsZero() && input.EndDate.Before(input.StartDate) {
		vErr.add("end_date", "the end date must not precede the start date")
	}

	if _, err := recurrence.ParseFrequency(input.Frequency); err != nil {
		vErr.add("frequency", "frequency must be weekly, biweekly, or monthly")
	}
	if input.DurationHours <= 0 {
		vErr.add("duration_hours", "the lesson duration must be positive")
	}

	if len(input.Slots) == 0 {
		vErr.add("slots", "at least one weekly window is required")
	}
	slots, err := slotsFromInputs(input.Slots)
	if err != nil {
		vErr.add("slots", "each window needs a weekday and a valid start before its end")
	}
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Overlaps(slots[j]) {
				vErr.add("slots", "weekly windows must not overlap each other")
			}
		}
	}

	if s.users != nil {
		if input.StudentID != "" {
			if _, err := s.users.GetUser(ctx, input.StudentID); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					vErr.add("student_id", "the student does not exist")
				} else {
					return nil, mapRepoError(err)
				}
			}
		}
		if input.TutorID != "" {
			if _, err := s.users.GetUser(ctx, input.TutorID); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					vErr.add("tutor_id", "the tutor does not exist")
				} else {
					return nil, mapRepoError(err)
				}
			}
		}
	}

	if input.MeetingResourceID != nil && s.resources != nil {
		if _, err := s.resources.GetResource(ctx, *input.MeetingResourceID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("meeting_resource_id", "the meeting resource does not exist")
			} else {
				return nil, mapRepoError(err)
			}
		}
	}

	if vErr.HasErrors() {
		return nil, vErr
	}
	return slots, nil
}

// ensureResourceFree hard-rejects the pairing when any of its weekly windows
// overlaps an existing claim on the chosen meeting resource.
func (s *EnrollmentService) ensureResourceFree(ctx context.Context, resourceID *string, slots []recurrence.Slot, excludeEnrollmentID string) error {
	if resourceID == nil || *resourceID == "" {
		return nil
	}

	for i := range slots {
		slot := slots[i]
		candidate := scheduler.Candidate{Pattern: &slot}
		commitments, err := collectResourceCommitments(ctx, s.enrollments, s.lessons, candidate, s.now(), excludeEnrollmentID, "")
		if err != nil {
			return err
		}

		pool := []scheduler.Resource{{ID: *resourceID}}
		available, _ := scheduler.AvailabilityMap(candidate, commitments, pool, s.location)
		if !available[*resourceID] {
			return ErrResourceBusy
		}
	}
	return nil
}

func normalizeEnrollmentInput(input EnrollmentInput) EnrollmentInput {
	out := input
	out.StudentID = strings.TrimSpace(input.StudentID)
	out.TutorID = strings.TrimSpace(input.TutorID)
	out.Frequency = strings.ToLower(strings.TrimSpace(input.Frequency))
	out.Summary = strings.TrimSpace(input.Summary)
	if input.MeetingResourceID != nil {
		trimmed := strings.TrimSpace(*input.MeetingResourceID)
		if trimmed == "" {
			out.MeetingResourceID = nil
		} else {
			out.MeetingResourceID = &trimmed
		}
	}
	return out
}

func slotRecordsFromInputs(inputs []SlotInput) []persistence.AvailabilitySlot {
	out := make([]persistence.AvailabilitySlot, 0, len(inputs))
	for _, input := range inputs {
		out = append(out, persistence.AvailabilitySlot{
			Weekday:   input.Weekday,
			StartTime: input.StartTime,
			EndTime:   input.EndTime,
		})
	}
	return out
}

// scheduleChanged reports whether the update moved anything that affects
// already materialized lessons.
func scheduleChanged(before, after persistence.Enrollment) bool {
	if before.Frequency != after.Frequency {
		return true
	}
	if before.DurationHours != after.DurationHours {
		return true
	}
	if !before.StartDate.Equal(after.StartDate) {
		return true
	}
	if (before.EndDate == nil) != (after.EndDate == nil) {
		return true
	}
	if before.EndDate != nil && after.EndDate != nil && !before.EndDate.Equal(*after.EndDate) {
		return true
	}
	if (before.MeetingResourceID == nil) != (after.MeetingResourceID == nil) {
		return true
	}
	if before.MeetingResourceID != nil && after.MeetingResourceID != nil && *before.MeetingResourceID != *after.MeetingResourceID {
		return true
	}
	if len(before.Slots) != len(after.Slots) {
		return true
	}
	for i := range before.Slots {
		if before.Slots[i] != after.Slots[i] {
			return true
		}
	}
	return false
}
