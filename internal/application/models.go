package application

import (
	"fmt"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/recurrence"
	"github.com/example/tutoring-scheduler/internal/scheduler"
)

// Account roles understood by the services.
const (
	RoleAdmin   = "admin"
	RoleTutor   = "tutor"
	RoleStudent = "student"
)

// Lesson lifecycle states.
const (
	LessonStatusActive      = "active"
	LessonStatusComplete    = "complete"
	LessonStatusCancelled   = "cancelled"
	LessonStatusRescheduled = "rescheduled"
	LessonStatusExpired     = "expired"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the principal carries the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Role        string
	TimeZone    string
	Password    string
}

// User represents a platform account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	TimeZone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// ResourceInput captures caller provided meeting-resource fields.
type ResourceInput struct {
	Name         string
	ExternalLink string
}

// Resource represents an entry of the shared meeting pool.
type Resource struct {
	ID           string
	Name         string
	ExternalLink string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateResourceParams wraps the data required to create a meeting resource.
type CreateResourceParams struct {
	Principal Principal
	Input     ResourceInput
}

// UpdateResourceParams wraps the data required to update a meeting resource.
type UpdateResourceParams struct {
	Principal  Principal
	ResourceID string
	Input      ResourceInput
}

// SlotInput is one weekly window in wire form: a Go weekday number plus
// "15:04" clock strings.
type SlotInput struct {
	Weekday   int
	StartTime string
	EndTime   string
}

// EnrollmentInput captures caller provided enrollment fields.
type EnrollmentInput struct {
	StudentID         string
	TutorID           string
	Slots             []SlotInput
	StartDate         time.Time
	EndDate           *time.Time
	Frequency         string
	DurationHours     float64
	MeetingResourceID *string
	Summary           string
}

// Enrollment represents a recurring student-tutor pairing exposed by the
// services.
type Enrollment struct {
	ID                string
	StudentID         string
	TutorID           string
	Slots             []SlotInput
	StartDate         time.Time
	EndDate           *time.Time
	Frequency         string
	DurationHours     float64
	MeetingResourceID *string
	Paused            bool
	Summary           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateEnrollmentParams wraps the data required to create an enrollment.
type CreateEnrollmentParams struct {
	Principal Principal
	Input     EnrollmentInput
}

// UpdateEnrollmentParams wraps the data required to update an enrollment.
type UpdateEnrollmentParams struct {
	Principal    Principal
	EnrollmentID string
	Input        EnrollmentInput
}

// ListEnrollmentsParams wraps the data required to list enrollments.
type ListEnrollmentsParams struct {
	Principal Principal
	StudentID string
	TutorID   string
	ActiveOn  *time.Time
}

// LessonInput captures caller provided fields for an ad-hoc lesson.
type LessonInput struct {
	StudentID         string
	TutorID           string
	StartsAt          time.Time
	DurationHours     float64
	MeetingResourceID *string
	Summary           string
}

// Lesson represents one concrete, dated session exposed by the services.
type Lesson struct {
	ID                string
	EnrollmentID      *string
	StudentID         string
	TutorID           string
	StartsAt          time.Time
	DurationHours     float64
	MeetingResourceID *string
	Status            string
	Summary           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateLessonParams wraps the data required to book an ad-hoc lesson.
type CreateLessonParams struct {
	Principal Principal
	Input     LessonInput
}

// RescheduleLessonParams wraps the data required to move a lesson.
type RescheduleLessonParams struct {
	Principal Principal
	LessonID  string
	StartsAt  time.Time
}

// ListLessonsParams wraps the data required to list lessons.
type ListLessonsParams struct {
	Principal   Principal
	StudentID   string
	TutorID     string
	StartsAfter *time.Time
	EndsBefore  *time.Time
	Statuses    []string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication
// attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// ResourceAvailabilityParams describes the candidate window probed against the
// meeting pool. Exactly one of Window and Pattern should be set.
type ResourceAvailabilityParams struct {
	Principal Principal
	Window    *scheduler.Window
	Pattern   *SlotInput
}

// ResourceAvailability reports whether one resource is free for the candidate.
type ResourceAvailability struct {
	Resource  Resource
	Available bool
}

// MaterializeParams wraps the data required to materialize a week.
type MaterializeParams struct {
	Principal Principal
	WeekOf    time.Time
}

// MaterializeRunResult reports what one materializer run produced.
type MaterializeRunResult struct {
	WeekStart time.Time
	Created   []Lesson
	Skipped   []scheduler.SkippedEnrollment
}

// ValidateSlotParams wraps the data for validating a proposed weekly window.
type ValidateSlotParams struct {
	Open      []SlotInput
	Proposed  SlotInput
	Selection []SlotInput
}

// SlotValidationResult reports the outcome of a slot validation.
type SlotValidationResult struct {
	OK        bool
	Reason    string
	Selection []SlotInput
}

// TimeOptionsParams wraps the data for generating selectable times.
type TimeOptionsParams struct {
	Weekday       int
	Open          []SlotInput
	SelectedStart string
}

// TimeOptionsResult lists the selectable start and end times in "15:04" form.
type TimeOptionsResult struct {
	Starts []string
	Ends   []string
}

// OpenWindowsParams wraps the two weekly availability sets to intersect.
type OpenWindowsParams struct {
	First  []SlotInput
	Second []SlotInput
}

// slotFromInput parses a wire-form slot into a recurrence slot.
func slotFromInput(input SlotInput) (recurrence.Slot, error) {
	if input.Weekday < 0 || input.Weekday > 6 {
		return recurrence.Slot{}, fmt.Errorf("%w: weekday %d", civil.ErrInvalidWeekday, input.Weekday)
	}
	start, err := civil.ParseLocalTime(input.StartTime)
	if err != nil {
		return recurrence.Slot{}, err
	}
	end, err := civil.ParseLocalTime(input.EndTime)
	if err != nil {
		return recurrence.Slot{}, err
	}
	slot := recurrence.Slot{Day: time.Weekday(input.Weekday), Start: start, End: end}
	if err := slot.Validate(); err != nil {
		return recurrence.Slot{}, err
	}
	return slot, nil
}

func slotToInput(slot recurrence.Slot) SlotInput {
	return SlotInput{
		Weekday:   int(slot.Day),
		StartTime: slot.Start.String(),
		EndTime:   slot.End.String(),
	}
}

func slotsFromInputs(inputs []SlotInput) ([]recurrence.Slot, error) {
	slots := make([]recurrence.Slot, 0, len(inputs))
	for i, input := range inputs {
		slot, err := slotFromInput(input)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func userFromRecord(record persistence.User) User {
	return User{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		Role:        record.Role,
		TimeZone:    record.TimeZone,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func resourceFromRecord(record persistence.MeetingResource) Resource {
	return Resource{
		ID:           record.ID,
		Name:         record.Name,
		ExternalLink: record.ExternalLink,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func enrollmentFromRecord(record persistence.Enrollment) Enrollment {
	slots := make([]SlotInput, 0, len(record.Slots))
	for _, slot := range record.Slots {
		slots = append(slots, SlotInput{Weekday: slot.Weekday, StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	return Enrollment{
		ID:                record.ID,
		StudentID:         record.StudentID,
		TutorID:           record.TutorID,
		Slots:             slots,
		StartDate:         record.StartDate,
		EndDate:           cloneTime(record.EndDate),
		Frequency:         record.Frequency,
		DurationHours:     record.DurationHours,
		MeetingResourceID: cloneStringPtr(record.MeetingResourceID),
		Paused:            record.Paused,
		Summary:           record.Summary,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

func lessonFromRecord(record persistence.Lesson) Lesson {
	return Lesson{
		ID:                record.ID,
		EnrollmentID:      cloneStringPtr(record.EnrollmentID),
		StudentID:         record.StudentID,
		TutorID:           record.TutorID,
		StartsAt:          record.StartsAt,
		DurationHours:     record.DurationHours,
		MeetingResourceID: cloneStringPtr(record.MeetingResourceID),
		Status:            record.Status,
		Summary:           record.Summary,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
