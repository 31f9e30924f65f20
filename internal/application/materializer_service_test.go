package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/testfixtures"
)

func TestMaterializerService_MaterializeWeek(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.MaterializerService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, []persistence.Enrollment{
		testfixtures.NewEnrollmentFixture(
			testfixtures.WithEnrollmentID("enr-1"),
			testfixtures.WithEnrollmentSlots(
				persistence.AvailabilitySlot{Weekday: 1, StartTime: "14:00", EndTime: "15:00"},
				persistence.AvailabilitySlot{Weekday: 4, StartTime: "09:00", EndTime: "10:30"},
			),
		),
	}, nil)

	// The reference clock falls on Monday 2024-06-03.
	result, err := service.MaterializeWeek(ctx, application.MaterializeParams{Principal: adminPrincipal})
	if err != nil {
		t.Fatalf("MaterializeWeek failed: %v", err)
	}

	wantWeekStart := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if !result.WeekStart.Equal(wantWeekStart) {
		t.Errorf("expected week start %v, got %v", wantWeekStart, result.WeekStart)
	}
	if len(result.Created) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(result.Created))
	}

	wantStarts := []time.Time{
		time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 6, 9, 0, 0, 0, time.UTC),
	}
	for i, want := range wantStarts {
		if !result.Created[i].StartsAt.Equal(want) {
			t.Errorf("lesson %d: expected start %v, got %v", i, want, result.Created[i].StartsAt)
		}
		if result.Created[i].EnrollmentID == nil || *result.Created[i].EnrollmentID != "enr-1" {
			t.Errorf("lesson %d: expected enrollment attribution", i)
		}
		if result.Created[i].Status != application.LessonStatusActive {
			t.Errorf("lesson %d: expected active status", i)
		}
	}
}

func TestMaterializerService_MaterializeWeek_Rerun(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.MaterializerService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, []persistence.Enrollment{
		testfixtures.NewEnrollmentFixture(),
	}, nil)

	first, err := service.MaterializeWeek(ctx, application.MaterializeParams{Principal: adminPrincipal})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(first.Created) != 1 {
		t.Fatalf("expected 1 lesson from the first run, got %d", len(first.Created))
	}

	second, err := service.MaterializeWeek(ctx, application.MaterializeParams{Principal: adminPrincipal})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(second.Created) != 0 {
		t.Fatalf("expected the rerun to be a no-op, got %d lessons", len(second.Created))
	}
}

func TestMaterializerService_MaterializeWeek_SkipsPausedAndMalformed(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.MaterializerService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, []persistence.Enrollment{
		testfixtures.NewEnrollmentFixture(
			testfixtures.WithEnrollmentID("paused"),
			testfixtures.WithEnrollmentPaused(),
		),
		testfixtures.NewEnrollmentFixture(
			testfixtures.WithEnrollmentID("broken"),
			testfixtures.WithEnrollmentParticipants("student-2", "tutor-2"),
			testfixtures.WithEnrollmentSlots(persistence.AvailabilitySlot{Weekday: 1, StartTime: "15:00", EndTime: "14:00"}),
		),
		testfixtures.NewEnrollmentFixture(
			testfixtures.WithEnrollmentID("healthy"),
			testfixtures.WithEnrollmentParticipants("student-3", "tutor-3"),
		),
	}, nil)

	result, err := service.MaterializeWeek(ctx, application.MaterializeParams{Principal: adminPrincipal})
	if err != nil {
		t.Fatalf("MaterializeWeek failed: %v", err)
	}

	if len(result.Created) != 1 {
		t.Fatalf("expected only the healthy enrollment to materialize, got %d", len(result.Created))
	}
	if result.Created[0].StudentID != "student-3" {
		t.Errorf("unexpected lesson %+v", result.Created[0])
	}
	if len(result.Skipped) != 1 || result.Skipped[0].EnrollmentID != "broken" {
		t.Fatalf("expected the broken enrollment to be reported, got %+v", result.Skipped)
	}
}

func TestMaterializerService_MaterializeWeek_TargetWeek(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.MaterializerService()
	ctx := context.Background()

	factory.Store.Seed(nil, nil, []persistence.Enrollment{
		testfixtures.NewEnrollmentFixture(testfixtures.WithEnrollmentFrequency("biweekly")),
	}, nil)

	// The fixture's cadence anchor is its start date, one week before the
	// reference Monday, so the following week is the on-cadence one.
	offWeek, err := service.MaterializeWeek(ctx, application.MaterializeParams{
		Principal: adminPrincipal,
		WeekOf:    time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("off-week run failed: %v", err)
	}
	if len(offWeek.Created) != 0 {
		t.Fatalf("expected no lessons in the off week, got %d", len(offWeek.Created))
	}

	onWeek, err := service.MaterializeWeek(ctx, application.MaterializeParams{
		Principal: adminPrincipal,
		WeekOf:    time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("on-week run failed: %v", err)
	}
	if len(onWeek.Created) != 1 {
		t.Fatalf("expected 1 lesson in the on-cadence week, got %d", len(onWeek.Created))
	}
	if want := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC); !onWeek.Created[0].StartsAt.Equal(want) {
		t.Errorf("expected start %v, got %v", want, onWeek.Created[0].StartsAt)
	}
}

func TestMaterializerService_MaterializeWeek_RequiresAdmin(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.MaterializerService()

	_, err := service.MaterializeWeek(context.Background(), application.MaterializeParams{
		Principal: application.Principal{UserID: "tutor-1", Role: application.RoleTutor},
	})
	if err != application.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
