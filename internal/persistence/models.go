package persistence

import "time"

// User represents a platform account: administrators, tutors, and students.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	TimeZone     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MeetingResource represents one entry of the shared meeting pool.
type MeetingResource struct {
	ID           string
	Name         string
	ExternalLink string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilitySlot is one weekly recurring window owned by a user or an
// enrollment. Times are stored in "15:04" form; the weekday uses Go's
// time.Weekday numbering.
type AvailabilitySlot struct {
	Weekday   int
	StartTime string
	EndTime   string
}

// Enrollment represents a recurring weekly pairing between a student and a
// tutor.
type Enrollment struct {
	ID                string
	StudentID         string
	TutorID           string
	Slots             []AvailabilitySlot
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

// Lesson represents one concrete, dated session. StartsAt is an absolute
// instant; StartsAtMinute is its minute-rounded UTC form backing the dedup
// uniqueness constraint.
type Lesson struct {
	ID                string
	EnrollmentID      *string
	StudentID         string
	TutorID           string
	StartsAt          time.Time
	StartsAtMinute    string
	DurationHours     float64
	MeetingResourceID *string
	Status            string
	Summary           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AuthSession represents an authentication session persisted for a user.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
