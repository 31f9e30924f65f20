package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/scheduler"
	"github.com/example/tutoring-scheduler/internal/testfixtures"
)

func TestResourceService_CreateResource(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.ResourceService()
	ctx := context.Background()

	created, err := service.CreateResource(ctx, application.CreateResourceParams{
		Principal: adminPrincipal,
		Input:     application.ResourceInput{Name: "  Zoom Pro A  ", ExternalLink: "https://zoom.example.com/a"},
	})
	if err != nil {
		t.Fatalf("CreateResource failed: %v", err)
	}
	if created.Name != "Zoom Pro A" {
		t.Errorf("expected trimmed name, got %q", created.Name)
	}

	// Pool names stay unique.
	_, err = service.CreateResource(ctx, application.CreateResourceParams{
		Principal: adminPrincipal,
		Input:     application.ResourceInput{Name: "Zoom Pro A"},
	})
	if !errors.Is(err, application.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestResourceService_MutationsRequireAdmin(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.ResourceService()
	ctx := context.Background()

	tutor := application.Principal{UserID: "tutor-1", Role: application.RoleTutor}
	if _, err := service.CreateResource(ctx, application.CreateResourceParams{Principal: tutor, Input: application.ResourceInput{Name: "X"}}); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on create, got %v", err)
	}
	if err := service.DeleteResource(ctx, tutor, "anything"); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on delete, got %v", err)
	}
}

func TestResourceService_CheckAvailability_Pattern(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.ResourceService()
	ctx := context.Background()

	factory.Store.Seed(nil, []persistence.MeetingResource{
		testfixtures.NewResourceFixture(testfixtures.WithResourceID("room-1")),
		testfixtures.NewResourceFixture(testfixtures.WithResourceID("room-2")),
	}, []persistence.Enrollment{
		testfixtures.NewEnrollmentFixture(
			testfixtures.WithEnrollmentResource("room-1"),
			testfixtures.WithEnrollmentSlots(persistence.AvailabilitySlot{Weekday: 1, StartTime: "14:00", EndTime: "15:00"}),
		),
	}, nil)

	out, err := service.CheckAvailability(ctx, application.ResourceAvailabilityParams{
		Principal: adminPrincipal,
		Pattern:   &application.SlotInput{Weekday: 1, StartTime: "14:30", EndTime: "15:30"},
	})
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	byID := map[string]bool{}
	for _, entry := range out {
		byID[entry.Resource.ID] = entry.Available
	}
	if byID["room-1"] {
		t.Error("expected room-1 to be busy for the overlapping pattern")
	}
	if !byID["room-2"] {
		t.Error("expected room-2 to be free")
	}
}

func TestResourceService_CheckAvailability_Window(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.ResourceService()
	ctx := context.Background()

	startsAt := factory.Clock.Now().Add(48 * time.Hour)
	factory.Store.Seed(nil, []persistence.MeetingResource{
		testfixtures.NewResourceFixture(testfixtures.WithResourceID("room-1")),
	}, nil, []persistence.Lesson{
		testfixtures.NewLessonFixture(
			testfixtures.WithLessonStart(startsAt),
			testfixtures.WithLessonResource("room-1"),
		),
	})

	busy := scheduler.Window{Start: startsAt.Add(30 * time.Minute), End: startsAt.Add(90 * time.Minute)}
	out, err := service.CheckAvailability(ctx, application.ResourceAvailabilityParams{Principal: adminPrincipal, Window: &busy})
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if len(out) != 1 || out[0].Available {
		t.Fatalf("expected room-1 busy, got %+v", out)
	}

	free := scheduler.Window{Start: startsAt.Add(2 * time.Hour), End: startsAt.Add(3 * time.Hour)}
	out, err = service.CheckAvailability(ctx, application.ResourceAvailabilityParams{Principal: adminPrincipal, Window: &free})
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if len(out) != 1 || !out[0].Available {
		t.Fatalf("expected room-1 free, got %+v", out)
	}
}

func TestResourceService_CheckAvailability_RequiresExactlyOneCandidate(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.ResourceService()
	ctx := context.Background()

	var vErr *application.ValidationError
	if _, err := service.CheckAvailability(ctx, application.ResourceAvailabilityParams{Principal: adminPrincipal}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError without a candidate, got %v", err)
	}

	window := scheduler.Window{Start: factory.Clock.Now(), End: factory.Clock.Now().Add(time.Hour)}
	pattern := application.SlotInput{Weekday: 1, StartTime: "14:00", EndTime: "15:00"}
	if _, err := service.CheckAvailability(ctx, application.ResourceAvailabilityParams{Principal: adminPrincipal, Window: &window, Pattern: &pattern}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError with both candidates, got %v", err)
	}
}
