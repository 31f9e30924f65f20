package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/scheduler"
)

// LessonService orchestrates concrete sessions: ad-hoc booking with resource
// conflict rejection, rescheduling, and lifecycle transitions.
type LessonService struct {
	lessons     persistence.LessonRepository
	enrollments persistence.EnrollmentRepository
	users       persistence.UserRepository
	resources   persistence.ResourceRepository
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewLessonService wires dependencies for lesson operations.
func NewLessonService(lessons persistence.LessonRepository, enrollments persistence.EnrollmentRepository, users persistence.UserRepository, resources persistence.ResourceRepository, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LessonService {
	if location == nil {
		location = time.UTC
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LessonService{
		lessons:     lessons,
		enrollments: enrollments,
		users:       users,
		resources:   resources,
		location:    location,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateLesson books a one-off session outside any enrollment. A chosen
// meeting resource already claimed for an overlapping window is a hard
// rejection. A duplicate of an existing session for the same pairing and
// minute maps to ErrAlreadyExists via the storage dedup index.
func (s *LessonService) CreateLesson(ctx context.Context, params CreateLessonParams) (lesson Lesson, err error) {
	if s == nil {
		err = fmt.Errorf("LessonService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "LessonService", "CreateLesson",
		"student_id", params.Input.StudentID,
		"tutor_id", params.Input.TutorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "lesson booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("lesson_id", lesson.ID).InfoContext(ctx, "lesson booked")
	}()

	input := normalizeLessonInput(params.Input)
	if !params.Principal.IsAdmin() && params.Principal.UserID != input.TutorID {
		err = ErrUnauthorized
		return
	}

	if err = s.validateLessonInput(ctx, input); err != nil {
		return
	}

	window := scheduler.Window{
		Start: input.StartsAt,
		End:   input.StartsAt.Add(durationFromHours(input.DurationHours)),
	}
	if err = s.ensureResourceFree(ctx, input.MeetingResourceID, window, ""); err != nil {
		return
	}

	now := s.now()
	record := persistence.Lesson{
		ID:                s.idGenerator(),
		StudentID:         input.StudentID,
		TutorID:           input.TutorID,
		StartsAt:          input.StartsAt,
		StartsAtMinute:    input.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339),
		DurationHours:     input.DurationHours,
		MeetingResourceID: cloneStringPtr(input.MeetingResourceID),
		Status:            LessonStatusActive,
		Summary:           input.Summary,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if s.lessons == nil {
		lesson = lessonFromRecord(record)
		return
	}
	if err = s.lessons.CreateLesson(ctx, record); err != nil {
		err = mapRepoError(err)
		return
	}
	lesson = lessonFromRecord(record)
	return
}

// RescheduleLesson moves a session to a new start. The original row is kept
// and marked rescheduled; a fresh active row carries the new time so the dedup
// history of the old occurrence survives.
func (s *LessonService) RescheduleLesson(ctx context.Context, params RescheduleLessonParams) (lesson Lesson, err error) {
	if s == nil {
		err = fmt.Errorf("LessonService is nil")
		return
	}
	if s.lessons == nil {
		err = fmt.Errorf("lesson repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "LessonService", "RescheduleLesson",
		"lesson_id", params.LessonID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "lesson reschedule failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("replacement_id", lesson.ID).InfoContext(ctx, "lesson rescheduled")
	}()

	var existing persistence.Lesson
	existing, err = s.lessons.GetLesson(ctx, params.LessonID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !params.Principal.IsAdmin() && params.Principal.UserID != existing.TutorID {
		err = ErrUnauthorized
		return
	}
	if existing.Status != LessonStatusActive {
		vErr := &ValidationError{}
		vErr.add("status", "only active lessons can be rescheduled")
		err = vErr
		return
	}
	if params.StartsAt.IsZero() {
		vErr := &ValidationError{}
		vErr.add("starts_at", "a new start time is required")
		err = vErr
		return
	}

	window := scheduler.Window{
		Start: params.StartsAt,
		End:   params.StartsAt.Add(durationFromHours(existing.DurationHours)),
	}
	if err = s.ensureResourceFree(ctx, existing.MeetingResourceID, window, existing.ID); err != nil {
		return
	}

	now := s.now()
	replacement := existing
	replacement.ID = s.idGenerator()
	replacement.StartsAt = params.StartsAt
	replacement.StartsAtMinute = params.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
	replacement.Status = LessonStatusActive
	replacement.CreatedAt = now
	replacement.UpdatedAt = now

	if err = s.lessons.CreateLesson(ctx, replacement); err != nil {
		err = mapRepoError(err)
		return
	}

	existing.Status = LessonStatusRescheduled
	existing.UpdatedAt = now
	if err = s.lessons.UpdateLesson(ctx, existing); err != nil {
		err = mapRepoError(err)
		return
	}

	lesson = lessonFromRecord(replacement)
	return
}

// CancelLesson marks an active session cancelled.
func (s *LessonService) CancelLesson(ctx context.Context, principal Principal, lessonID string) (Lesson, error) {
	return s.transition(ctx, principal, lessonID, LessonStatusCancelled)
}

// CompleteLesson marks an active session complete.
func (s *LessonService) CompleteLesson(ctx context.Context, principal Principal, lessonID string) (Lesson, error) {
	return s.transition(ctx, principal, lessonID, LessonStatusComplete)
}

func (s *LessonService) transition(ctx context.Context, principal Principal, lessonID, status string) (Lesson, error) {
	if s == nil {
		return Lesson{}, fmt.Errorf("LessonService is nil")
	}
	if s.lessons == nil {
		return Lesson{}, fmt.Errorf("lesson repository not configured")
	}

	existing, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, mapRepoError(err)
	}
	if !principal.IsAdmin() && principal.UserID != existing.TutorID {
		return Lesson{}, ErrUnauthorized
	}
	if existing.Status != LessonStatusActive {
		vErr := &ValidationError{}
		vErr.add("status", "only active lessons can change state")
		return Lesson{}, vErr
	}

	existing.Status = status
	existing.UpdatedAt = s.now()
	if err := s.lessons.UpdateLesson(ctx, existing); err != nil {
		return Lesson{}, mapRepoError(err)
	}
	return lessonFromRecord(existing), nil
}

// GetLesson returns one session visible to the principal.
func (s *LessonService) GetLesson(ctx context.Context, principal Principal, lessonID string) (Lesson, error) {
	if s == nil {
		return Lesson{}, fmt.Errorf("LessonService is nil")
	}
	if s.lessons == nil {
		return Lesson{}, fmt.Errorf("lesson repository not configured")
	}

	record, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, mapRepoError(err)
	}
	if !principal.IsAdmin() && principal.UserID != record.TutorID && principal.UserID != record.StudentID {
		return Lesson{}, ErrUnauthorized
	}
	return lessonFromRecord(record), nil
}

// ListLessons enumerates sessions visible to the principal. Non-admin callers
// are always scoped to their own sessions.
func (s *LessonService) ListLessons(ctx context.Context, params ListLessonsParams) ([]Lesson, error) {
	if s == nil {
		return nil, fmt.Errorf("LessonService is nil")
	}
	if s.lessons == nil {
		return nil, nil
	}

	filter := persistence.LessonFilter{
		StudentID:   params.StudentID,
		TutorID:     params.TutorID,
		StartsAfter: params.StartsAfter,
		EndsBefore:  params.EndsBefore,
		Statuses:    params.Statuses,
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

	records, err := s.lessons.ListLessons(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]Lesson, 0, len(records))
	for _, record := range records {
		out = append(out, lessonFromRecord(record))
	}
	return out, nil
}

func (s *LessonService) validateLessonInput(ctx context.Context, input LessonInput) error {
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
	if input.StartsAt.IsZero() {
		vErr.add("starts_at", "a start time is required")
	}
	if input.DurationHours <= 0 {
		vErr.add("duration_hours", "the lesson duration must be positive")
	}

	if s.users != nil {
		for field, id := range map[string]string{"student_id": input.StudentID, "tutor_id": input.TutorID} {
			if id == "" {
				continue
			}
			if _, err := s.users.GetUser(ctx, id); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					vErr.add(field, "the user does not exist")
				} else {
					return mapRepoError(err)
				}
			}
		}
	}

	if input.MeetingResourceID != nil && s.resources != nil {
		if _, err := s.resources.GetResource(ctx, *input.MeetingResourceID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("meeting_resource_id", "the meeting resource does not exist")
			} else {
				return mapRepoError(err)
			}
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *LessonService) ensureResourceFree(ctx context.Context, resourceID *string, window scheduler.Window, excludeLessonID string) error {
	if resourceID == nil || *resourceID == "" {
		return nil
	}

	candidate := scheduler.Candidate{Window: &window}
	commitments, err := collectResourceCommitments(ctx, s.enrollments, s.lessons, candidate, s.now(), "", excludeLessonID)
	if err != nil {
		return err
	}

	pool := []scheduler.Resource{{ID: *resourceID}}
	available, _ := scheduler.AvailabilityMap(candidate, commitments, pool, s.location)
	if !available[*resourceID] {
		return ErrResourceBusy
	}
	return nil
}

func normalizeLessonInput(input LessonInput) LessonInput {
	out := input
	out.StudentID = strings.TrimSpace(input.StudentID)
	out.TutorID = strings.TrimSpace(input.TutorID)
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
