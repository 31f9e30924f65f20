package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

func testLesson(id string, startsAt time.Time) persistence.Lesson {
	enrollmentID := "enr1"
	return persistence.Lesson{
		ID:            id,
		EnrollmentID:  &enrollmentID,
		StudentID:     "student1",
		TutorID:       "tutor1",
		StartsAt:      startsAt,
		DurationHours: 1,
		Status:        "active",
	}
}

func setupLessonTest(t *testing.T) *LessonRepository {
	t.Helper()
	pool := setupTestPool(t)
	seedUser(t, pool, "student1", "s1@example.com", "student")
	seedUser(t, pool, "tutor1", "t1@example.com", "tutor")

	enrollments := NewEnrollmentRepository(pool)
	if err := enrollments.CreateEnrollment(context.Background(), testEnrollment("enr1")); err != nil {
		t.Fatalf("seed enrollment failed: %v", err)
	}
	return NewLessonRepository(pool)
}

func TestLessonRepository_CreateAndGet(t *testing.T) {
	repo := setupLessonTest(t)
	ctx := context.Background()

	startsAt := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	if err := repo.CreateLesson(ctx, testLesson("lesson1", startsAt)); err != nil {
		t.Fatalf("CreateLesson failed: %v", err)
	}

	retrieved, err := repo.GetLesson(ctx, "lesson1")
	if err != nil {
		t.Fatalf("GetLesson failed: %v", err)
	}
	if !retrieved.StartsAt.Equal(startsAt) {
		t.Errorf("Expected start %v, got %v", startsAt, retrieved.StartsAt)
	}
	if retrieved.StartsAtMinute != "2024-06-03T14:00:00Z" {
		t.Errorf("Expected derived dedup minute, got '%s'", retrieved.StartsAtMinute)
	}
}

func TestLessonRepository_DedupIndex(t *testing.T) {
	repo := setupLessonTest(t)
	ctx := context.Background()

	startsAt := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	if err := repo.CreateLesson(ctx, testLesson("lesson1", startsAt)); err != nil {
		t.Fatalf("CreateLesson failed: %v", err)
	}

	// Same pairing at the same minute trips the unique index even with a
	// different row ID and second-level offset.
	clash := testLesson("lesson2", startsAt.Add(30*time.Second))
	err := repo.CreateLesson(ctx, clash)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
}

func TestLessonRepository_InsertLessons_Atomic(t *testing.T) {
	repo := setupLessonTest(t)
	ctx := context.Background()

	existing := testLesson("existing", time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC))
	if err := repo.CreateLesson(ctx, existing); err != nil {
		t.Fatalf("CreateLesson failed: %v", err)
	}

	batch := []persistence.Lesson{
		testLesson("new1", time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)),
		// Collides with the existing lesson's dedup key.
		testLesson("new2", time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)),
	}
	err := repo.InsertLessons(ctx, batch)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	// The whole batch must have rolled back.
	if _, err := repo.GetLesson(ctx, "new1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected batch rollback, got %v", err)
	}
}

func TestLessonRepository_ListLessons_Filters(t *testing.T) {
	repo := setupLessonTest(t)
	ctx := context.Background()

	lessons := []persistence.Lesson{
		testLesson("l1", time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)),
		testLesson("l2", time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)),
		testLesson("l3", time.Date(2024, 6, 17, 14, 0, 0, 0, time.UTC)),
	}
	if err := repo.InsertLessons(ctx, lessons); err != nil {
		t.Fatalf("InsertLessons failed: %v", err)
	}

	completed := lessons[0]
	completed.Status = "complete"
	if err := repo.UpdateLesson(ctx, completed); err != nil {
		t.Fatalf("UpdateLesson failed: %v", err)
	}

	after := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	result, err := repo.ListLessons(ctx, persistence.LessonFilter{
		StudentID:   "student1",
		StartsAfter: &after,
		EndsBefore:  &before,
		Statuses:    []string{"active"},
	})
	if err != nil {
		t.Fatalf("ListLessons failed: %v", err)
	}
	if len(result) != 1 || result[0].ID != "l2" {
		t.Fatalf("Expected only l2, got %+v", result)
	}
}

func TestLessonRepository_DeleteFutureLessons(t *testing.T) {
	repo := setupLessonTest(t)
	ctx := context.Background()

	past := testLesson("past", time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC))
	futureDone := testLesson("future-done", time.Date(2024, 6, 17, 14, 0, 0, 0, time.UTC))
	futureDone.Status = "complete"
	futureActive := testLesson("future-active", time.Date(2024, 6, 24, 14, 0, 0, 0, time.UTC))
	if err := repo.InsertLessons(ctx, []persistence.Lesson{past, futureDone, futureActive}); err != nil {
		t.Fatalf("InsertLessons failed: %v", err)
	}

	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	if err := repo.DeleteFutureLessons(ctx, "enr1", from); err != nil {
		t.Fatalf("DeleteFutureLessons failed: %v", err)
	}

	if _, err := repo.GetLesson(ctx, "past"); err != nil {
		t.Errorf("Past lesson should survive: %v", err)
	}
	if _, err := repo.GetLesson(ctx, "future-done"); err != nil {
		t.Errorf("Completed lesson should survive: %v", err)
	}
	if _, err := repo.GetLesson(ctx, "future-active"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Future active lesson should be removed, got %v", err)
	}
}
