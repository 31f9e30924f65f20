package testfixtures

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// Store is an in-memory implementation of every persistence repository. It
// mirrors the SQLite layer's constraint behavior (unique emails, unique
// resource names, the lesson dedup index) so services can be tested without a
// database file.
type Store struct {
	mu          sync.Mutex
	users       map[string]persistence.User
	resources   map[string]persistence.MeetingResource
	enrollments map[string]persistence.Enrollment
	lessons     map[string]persistence.Lesson
	sessions    map[string]persistence.AuthSession
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]persistence.User),
		resources:   make(map[string]persistence.MeetingResource),
		enrollments: make(map[string]persistence.Enrollment),
		lessons:     make(map[string]persistence.Lesson),
		sessions:    make(map[string]persistence.AuthSession),
	}
}

// Seed inserts records directly, bypassing constraint checks, for arranging
// test state.
func (s *Store) Seed(users []persistence.User, resources []persistence.MeetingResource, enrollments []persistence.Enrollment, lessons []persistence.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
	}
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	for _, e := range enrollments {
		s.enrollments[e.ID] = cloneEnrollment(e)
	}
	for _, l := range lessons {
		s.lessons[l.ID] = cloneLesson(l)
	}
}

// ----------------------------- Users -----------------------------

func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range s.users {
		if existing.Email == email {
			return persistence.ErrDuplicate
		}
	}
	user.Email = email
	s.users[user.ID] = user
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == needle {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context, role string) ([]persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		if role != "" && user.Role != role {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName == out[j].DisplayName {
			return out[i].ID < out[j].ID
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// ----------------------------- Resources -----------------------------

func (s *Store) CreateResource(ctx context.Context, resource persistence.MeetingResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.resources {
		if existing.Name == resource.Name {
			return persistence.ErrDuplicate
		}
	}
	s.resources[resource.ID] = resource
	return nil
}

func (s *Store) UpdateResource(ctx context.Context, resource persistence.MeetingResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.resources[resource.ID] = resource
	return nil
}

func (s *Store) GetResource(ctx context.Context, id string) (persistence.MeetingResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource, ok := s.resources[id]
	if !ok {
		return persistence.MeetingResource{}, persistence.ErrNotFound
	}
	return resource, nil
}

func (s *Store) ListResources(ctx context.Context) ([]persistence.MeetingResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.MeetingResource, 0, len(s.resources))
	for _, resource := range s.resources {
		out = append(out, resource)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.resources, id)
	return nil
}

// ----------------------------- Enrollments -----------------------------

func (s *Store) CreateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[enrollment.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.enrollments[enrollment.ID] = cloneEnrollment(enrollment)
	return nil
}

func (s *Store) UpdateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[enrollment.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.enrollments[enrollment.ID] = cloneEnrollment(enrollment)
	return nil
}

func (s *Store) GetEnrollment(ctx context.Context, id string) (persistence.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[id]
	if !ok {
		return persistence.Enrollment{}, persistence.ErrNotFound
	}
	return cloneEnrollment(enrollment), nil
}

func (s *Store) ListEnrollments(ctx context.Context, filter persistence.EnrollmentFilter) ([]persistence.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.Enrollment, 0, len(s.enrollments))
	for _, enrollment := range s.enrollments {
		if filter.StudentID != "" && enrollment.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorID != "" && enrollment.TutorID != filter.TutorID {
			continue
		}
		if filter.ActiveOn != nil {
			if enrollment.Paused {
				continue
			}
			if enrollment.StartDate.After(*filter.ActiveOn) {
				continue
			}
			if enrollment.EndDate != nil && enrollment.EndDate.Before(*filter.ActiveOn) {
				continue
			}
		}
		out = append(out, cloneEnrollment(enrollment))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteEnrollment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.enrollments, id)
	return nil
}

// ----------------------------- Lessons -----------------------------

func (s *Store) CreateLesson(ctx context.Context, lesson persistence.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLessonLocked(lesson)
}

func (s *Store) InsertLessons(ctx context.Context, lessons []persistence.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// All-or-nothing, like the transactional SQLite batch.
	inserted := make([]string, 0, len(lessons))
	for _, lesson := range lessons {
		if err := s.insertLessonLocked(lesson); err != nil {
			for _, id := range inserted {
				delete(s.lessons, id)
			}
			return err
		}
		inserted = append(inserted, lesson.ID)
	}
	return nil
}

func (s *Store) insertLessonLocked(lesson persistence.Lesson) error {
	if _, ok := s.lessons[lesson.ID]; ok {
		return persistence.ErrDuplicate
	}
	if lesson.StartsAtMinute == "" {
		lesson.StartsAtMinute = lesson.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	for _, existing := range s.lessons {
		if existing.StudentID == lesson.StudentID &&
			existing.TutorID == lesson.TutorID &&
			existing.StartsAtMinute == lesson.StartsAtMinute {
			return persistence.ErrDuplicate
		}
	}
	s.lessons[lesson.ID] = cloneLesson(lesson)
	return nil
}

func (s *Store) UpdateLesson(ctx context.Context, lesson persistence.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[lesson.ID]; !ok {
		return persistence.ErrNotFound
	}
	if lesson.StartsAtMinute == "" {
		lesson.StartsAtMinute = lesson.StartsAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	s.lessons[lesson.ID] = cloneLesson(lesson)
	return nil
}

func (s *Store) GetLesson(ctx context.Context, id string) (persistence.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lesson, ok := s.lessons[id]
	if !ok {
		return persistence.Lesson{}, persistence.ErrNotFound
	}
	return cloneLesson(lesson), nil
}

func (s *Store) ListLessons(ctx context.Context, filter persistence.LessonFilter) ([]persistence.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.Lesson, 0, len(s.lessons))
	for _, lesson := range s.lessons {
		if filter.StudentID != "" && lesson.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorID != "" && lesson.TutorID != filter.TutorID {
			continue
		}
		if filter.EnrollmentID != "" && (lesson.EnrollmentID == nil || *lesson.EnrollmentID != filter.EnrollmentID) {
			continue
		}
		if filter.StartsAfter != nil && lesson.StartsAt.Before(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && !lesson.StartsAt.Before(*filter.EndsBefore) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, lesson.Status) {
			continue
		}
		out = append(out, cloneLesson(lesson))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func (s *Store) DeleteFutureLessons(ctx context.Context, enrollmentID string, from time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, lesson := range s.lessons {
		if lesson.EnrollmentID == nil || *lesson.EnrollmentID != enrollmentID {
			continue
		}
		if lesson.StartsAt.Before(from) {
			continue
		}
		if lesson.Status == "complete" {
			continue
		}
		delete(s.lessons, id)
	}
	return nil
}

// ----------------------------- Auth sessions -----------------------------

func (s *Store) CreateSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.Token == session.Token {
			return persistence.AuthSession{}, persistence.ErrDuplicate
		}
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return persistence.AuthSession{}, persistence.ErrNotFound
}

func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.Token != token || session.RevokedAt != nil {
			continue
		}
		at := revokedAt
		session.RevokedAt = &at
		session.UpdatedAt = revokedAt
		s.sessions[id] = session
		return session, nil
	}
	return persistence.AuthSession{}, persistence.ErrNotFound
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func cloneEnrollment(e persistence.Enrollment) persistence.Enrollment {
	out := e
	out.Slots = append([]persistence.AvailabilitySlot(nil), e.Slots...)
	if e.EndDate != nil {
		end := *e.EndDate
		out.EndDate = &end
	}
	if e.MeetingResourceID != nil {
		id := *e.MeetingResourceID
		out.MeetingResourceID = &id
	}
	return out
}

func cloneLesson(l persistence.Lesson) persistence.Lesson {
	out := l
	if l.EnrollmentID != nil {
		id := *l.EnrollmentID
		out.EnrollmentID = &id
	}
	if l.MeetingResourceID != nil {
		id := *l.MeetingResourceID
		out.MeetingResourceID = &id
	}
	return out
}

func containsString(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}
