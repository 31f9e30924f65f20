// Package testfixtures supplies deterministic builders, a controllable clock,
// and in-memory repositories for service and handler tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

var (
	userCounter       uint64
	resourceCounter   uint64
	enrollmentCounter uint64
	lessonCounter     uint64
)

var referenceTime = time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so week arithmetic in tests stays readable.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user record.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		Role:         "student",
		TimeZone:     "UTC",
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserRole overrides the generated role.
func WithUserRole(role string) UserOption {
	return func(u *persistence.User) { u.Role = role }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserTimeZone overrides the generated time zone.
func WithUserTimeZone(name string) UserOption {
	return func(u *persistence.User) { u.TimeZone = name }
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(u *persistence.User) { u.PasswordHash = hash }
}

// ResourceOption configures a generated meeting resource.
type ResourceOption func(*persistence.MeetingResource)

// NewResourceFixture returns a deterministic meeting resource with optional
// overrides.
func NewResourceFixture(opts ...ResourceOption) persistence.MeetingResource {
	idx := atomic.AddUint64(&resourceCounter, 1)
	id := fmt.Sprintf("resource-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	resource := persistence.MeetingResource{
		ID:           id,
		Name:         fmt.Sprintf("Meeting Room %03d", idx),
		ExternalLink: fmt.Sprintf("https://meet.example.com/%s", id),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&resource)
	}
	return resource
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(r *persistence.MeetingResource) { r.ID = id }
}

// WithResourceName overrides the generated resource name.
func WithResourceName(name string) ResourceOption {
	return func(r *persistence.MeetingResource) { r.Name = name }
}

// EnrollmentOption configures a generated enrollment.
type EnrollmentOption func(*persistence.Enrollment)

// NewEnrollmentFixture returns a deterministic weekly enrollment with one
// Monday afternoon slot and optional overrides.
func NewEnrollmentFixture(opts ...EnrollmentOption) persistence.Enrollment {
	idx := atomic.AddUint64(&enrollmentCounter, 1)
	id := fmt.Sprintf("enrollment-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	enrollment := persistence.Enrollment{
		ID:        id,
		StudentID: "student-1",
		TutorID:   "tutor-1",
		Slots: []persistence.AvailabilitySlot{
			{Weekday: 1, StartTime: "14:00", EndTime: "15:00"},
		},
		StartDate:     referenceTime.AddDate(0, 0, -7),
		Frequency:     "weekly",
		DurationHours: 1,
		Summary:       fmt.Sprintf("Enrollment %03d", idx),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for _, opt := range opts {
		opt(&enrollment)
	}
	return enrollment
}

// WithEnrollmentID overrides the generated enrollment ID.
func WithEnrollmentID(id string) EnrollmentOption {
	return func(e *persistence.Enrollment) { e.ID = id }
}

// WithEnrollmentParticipants overrides the student and tutor.
func WithEnrollmentParticipants(studentID, tutorID string) EnrollmentOption {
	return func(e *persistence.Enrollment) {
		e.StudentID = studentID
		e.TutorID = tutorID
	}
}

// WithEnrollmentSlots overrides the weekly windows.
func WithEnrollmentSlots(slots ...persistence.AvailabilitySlot) EnrollmentOption {
	return func(e *persistence.Enrollment) { e.Slots = slots }
}

// WithEnrollmentFrequency overrides the cadence.
func WithEnrollmentFrequency(frequency string) EnrollmentOption {
	return func(e *persistence.Enrollment) { e.Frequency = frequency }
}

// WithEnrollmentResource assigns a meeting resource.
func WithEnrollmentResource(resourceID string) EnrollmentOption {
	return func(e *persistence.Enrollment) { e.MeetingResourceID = &resourceID }
}

// WithEnrollmentPaused marks the enrollment paused.
func WithEnrollmentPaused() EnrollmentOption {
	return func(e *persistence.Enrollment) { e.Paused = true }
}

// LessonOption configures a generated lesson.
type LessonOption func(*persistence.Lesson)

// NewLessonFixture returns a deterministic active lesson with optional
// overrides.
func NewLessonFixture(opts ...LessonOption) persistence.Lesson {
	idx := atomic.AddUint64(&lessonCounter, 1)
	id := fmt.Sprintf("lesson-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	startsAt := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	lesson := persistence.Lesson{
		ID:             id,
		StudentID:      "student-1",
		TutorID:        "tutor-1",
		StartsAt:       startsAt,
		StartsAtMinute: startsAt.UTC().Truncate(time.Minute).Format(time.RFC3339),
		DurationHours:  1,
		Status:         "active",
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&lesson)
	}
	return lesson
}

// WithLessonID overrides the generated lesson ID.
func WithLessonID(id string) LessonOption {
	return func(l *persistence.Lesson) { l.ID = id }
}

// WithLessonParticipants overrides the student and tutor.
func WithLessonParticipants(studentID, tutorID string) LessonOption {
	return func(l *persistence.Lesson) {
		l.StudentID = studentID
		l.TutorID = tutorID
	}
}

// WithLessonStart overrides the start instant and the derived dedup minute.
func WithLessonStart(at time.Time) LessonOption {
	return func(l *persistence.Lesson) {
		l.StartsAt = at
		l.StartsAtMinute = at.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
}

// WithLessonEnrollment attributes the lesson to an enrollment.
func WithLessonEnrollment(enrollmentID string) LessonOption {
	return func(l *persistence.Lesson) { l.EnrollmentID = &enrollmentID }
}

// WithLessonResource assigns a meeting resource.
func WithLessonResource(resourceID string) LessonOption {
	return func(l *persistence.Lesson) { l.MeetingResourceID = &resourceID }
}

// WithLessonStatus overrides the lifecycle status.
func WithLessonStatus(status string) LessonOption {
	return func(l *persistence.Lesson) { l.Status = status }
}
