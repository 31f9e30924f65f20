package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for platform accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, role string) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ResourceRepository exposes CRUD operations for the meeting-resource pool.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource MeetingResource) error
	UpdateResource(ctx context.Context, resource MeetingResource) error
	GetResource(ctx context.Context, id string) (MeetingResource, error)
	ListResources(ctx context.Context) ([]MeetingResource, error)
	DeleteResource(ctx context.Context, id string) error
}

// EnrollmentFilter narrows enrollment queries.
type EnrollmentFilter struct {
	StudentID string
	TutorID   string
	// ActiveOn keeps only enrollments whose [StartDate, EndDate] range covers
	// the given instant and which are not paused.
	ActiveOn *time.Time
}

// EnrollmentRepository stores recurring pairings and their slots.
type EnrollmentRepository interface {
	CreateEnrollment(ctx context.Context, enrollment Enrollment) error
	UpdateEnrollment(ctx context.Context, enrollment Enrollment) error
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error
}

// LessonFilter narrows lesson queries.
type LessonFilter struct {
	StudentID    string
	TutorID      string
	EnrollmentID string
	StartsAfter  *time.Time
	EndsBefore   *time.Time
	Statuses     []string
}

// LessonRepository stores concrete session rows.
//
// InsertLessons persists a materialization batch in one transaction: either
// every row lands or none do. The unique index over the dedup key makes a
// concurrent run over the same week fail with ErrDuplicate, which callers may
// safely retry.
type LessonRepository interface {
	CreateLesson(ctx context.Context, lesson Lesson) error
	InsertLessons(ctx context.Context, lessons []Lesson) error
	UpdateLesson(ctx context.Context, lesson Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
	// DeleteFutureLessons removes not-yet-started, non-complete lessons of an
	// enrollment. Past and completed lessons are never touched.
	DeleteFutureLessons(ctx context.Context, enrollmentID string, from time.Time) error
}

// AuthSessionRepository stores authentication session state.
type AuthSessionRepository interface {
	CreateSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetSession(ctx context.Context, token string) (AuthSession, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
