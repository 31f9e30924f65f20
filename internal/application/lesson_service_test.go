package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/testfixtures"
)

func adHocInput(startsAt time.Time) application.LessonInput {
	return application.LessonInput{
		StudentID:     "student-1",
		TutorID:       "tutor-1",
		StartsAt:      startsAt,
		DurationHours: 1,
		Summary:       "trial lesson",
	}
}

func TestLessonService_CreateLesson(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	seedPairing(factory)

	startsAt := factory.Clock.Now().Add(48 * time.Hour)
	created, err := service.CreateLesson(context.Background(), application.CreateLessonParams{
		Principal: application.Principal{UserID: "tutor-1", Role: application.RoleTutor},
		Input:     adHocInput(startsAt),
	})
	if err != nil {
		t.Fatalf("CreateLesson failed: %v", err)
	}
	if created.Status != application.LessonStatusActive {
		t.Errorf("expected active lesson, got %q", created.Status)
	}
	if created.EnrollmentID != nil {
		t.Error("ad-hoc lessons must not reference an enrollment")
	}
}

func TestLessonService_CreateLesson_DuplicateMinute(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	seedPairing(factory)
	ctx := context.Background()

	startsAt := factory.Clock.Now().Add(48 * time.Hour)
	if _, err := service.CreateLesson(ctx, application.CreateLessonParams{Principal: adminPrincipal, Input: adHocInput(startsAt)}); err != nil {
		t.Fatalf("first CreateLesson failed: %v", err)
	}

	// A second booking within the same minute for the same pairing trips the
	// dedup index.
	_, err := service.CreateLesson(ctx, application.CreateLessonParams{Principal: adminPrincipal, Input: adHocInput(startsAt.Add(30 * time.Second))})
	if !errors.Is(err, application.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLessonService_CreateLesson_ResourceBusy(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	seedPairing(factory)
	ctx := context.Background()

	startsAt := factory.Clock.Now().Add(48 * time.Hour)
	factory.Store.Seed(nil, nil, nil, []persistence.Lesson{
		testfixtures.NewLessonFixture(
			testfixtures.WithLessonStart(startsAt.Add(30*time.Minute)),
			testfixtures.WithLessonResource("room-1"),
		),
	})

	roomID := "room-1"
	input := adHocInput(startsAt)
	input.MeetingResourceID = &roomID
	_, err := service.CreateLesson(ctx, application.CreateLessonParams{Principal: adminPrincipal, Input: input})
	if !errors.Is(err, application.ErrResourceBusy) {
		t.Fatalf("expected ErrResourceBusy, got %v", err)
	}

	// Booking after the claim ends is fine.
	input.StartsAt = startsAt.Add(2 * time.Hour)
	if _, err := service.CreateLesson(ctx, application.CreateLessonParams{Principal: adminPrincipal, Input: input}); err != nil {
		t.Fatalf("non-overlapping CreateLesson failed: %v", err)
	}
}

func TestLessonService_RescheduleLesson(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	seedPairing(factory)
	ctx := context.Background()

	startsAt := factory.Clock.Now().Add(48 * time.Hour)
	original := testfixtures.NewLessonFixture(
		testfixtures.WithLessonID("orig"),
		testfixtures.WithLessonStart(startsAt),
		testfixtures.WithLessonResource("room-1"),
	)
	factory.Store.Seed(nil, nil, nil, []persistence.Lesson{original})

	// Shifting within the resource's own claim must not conflict with itself.
	newStart := startsAt.Add(30 * time.Minute)
	replacement, err := service.RescheduleLesson(ctx, application.RescheduleLessonParams{
		Principal: adminPrincipal,
		LessonID:  "orig",
		StartsAt:  newStart,
	})
	if err != nil {
		t.Fatalf("RescheduleLesson failed: %v", err)
	}
	if replacement.ID == "orig" {
		t.Error("expected a fresh lesson row")
	}
	if !replacement.StartsAt.Equal(newStart) {
		t.Errorf("expected start %v, got %v", newStart, replacement.StartsAt)
	}

	moved, err := factory.Store.GetLesson(ctx, "orig")
	if err != nil {
		t.Fatalf("GetLesson failed: %v", err)
	}
	if moved.Status != application.LessonStatusRescheduled {
		t.Errorf("expected the original to be marked rescheduled, got %q", moved.Status)
	}
}

func TestLessonService_RescheduleLesson_OnlyActive(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, nil, []persistence.Lesson{
		testfixtures.NewLessonFixture(
			testfixtures.WithLessonID("done"),
			testfixtures.WithLessonStatus(application.LessonStatusComplete),
		),
	})

	_, err := service.RescheduleLesson(ctx, application.RescheduleLessonParams{
		Principal: adminPrincipal,
		LessonID:  "done",
		StartsAt:  factory.Clock.Now().Add(24 * time.Hour),
	})
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLessonService_CancelAndComplete(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, nil, []persistence.Lesson{
		testfixtures.NewLessonFixture(testfixtures.WithLessonID("a")),
		testfixtures.NewLessonFixture(testfixtures.WithLessonID("b")),
	})

	cancelled, err := service.CancelLesson(ctx, adminPrincipal, "a")
	if err != nil {
		t.Fatalf("CancelLesson failed: %v", err)
	}
	if cancelled.Status != application.LessonStatusCancelled {
		t.Errorf("expected cancelled, got %q", cancelled.Status)
	}

	completed, err := service.CompleteLesson(ctx, adminPrincipal, "b")
	if err != nil {
		t.Fatalf("CompleteLesson failed: %v", err)
	}
	if completed.Status != application.LessonStatusComplete {
		t.Errorf("expected complete, got %q", completed.Status)
	}

	// Cancelled lessons cannot transition again.
	if _, err := service.CompleteLesson(ctx, adminPrincipal, "a"); err == nil {
		t.Fatal("expected an error completing a cancelled lesson")
	}
}

func TestLessonService_ListLessons_ScopesNonAdmins(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.LessonService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, nil, []persistence.Lesson{
		testfixtures.NewLessonFixture(testfixtures.WithLessonParticipants("student-1", "tutor-1")),
		testfixtures.NewLessonFixture(testfixtures.WithLessonParticipants("student-2", "tutor-2")),
	})

	tutor := application.Principal{UserID: "tutor-2", Role: application.RoleTutor}
	out, err := service.ListLessons(ctx, application.ListLessonsParams{Principal: tutor})
	if err != nil {
		t.Fatalf("ListLessons failed: %v", err)
	}
	if len(out) != 1 || out[0].TutorID != "tutor-2" {
		t.Fatalf("expected only the caller's lessons, got %+v", out)
	}
}
