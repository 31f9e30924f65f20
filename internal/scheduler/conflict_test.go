package scheduler

import (
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
	"github.com/example/tutoring-scheduler/internal/recurrence"
)

func resourcePool() []Resource {
	return []Resource{
		{ID: "resource-1", Name: "Zoom Room 1"},
		{ID: "resource-2", Name: "Zoom Room 2"},
		{ID: "resource-3", Name: "Zoom Room 3"},
	}
}

func strPtr(value string) *string {
	return &value
}

func tuesdaySlot() recurrence.Slot {
	return recurrence.Slot{Day: time.Tuesday, Start: civil.LocalTime{Hour: 14}, End: civil.LocalTime{Hour: 15}}
}

func TestAvailabilityMap_PatternCandidates(t *testing.T) {
	t.Parallel()

	t.Run("marks the shared resource unavailable for matching patterns", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		commitments := []Commitment{
			{ID: "enrollment-2", ResourceID: strPtr("resource-1"), Pattern: &slot},
		}

		available, skipped := AvailabilityMap(Candidate{Pattern: &slot}, commitments, resourcePool(), time.UTC)
		if len(skipped) != 0 {
			t.Fatalf("unexpected skipped commitments: %v", skipped)
		}
		if available["resource-1"] {
			t.Fatal("resource-1 should be unavailable")
		}
		if !available["resource-2"] || !available["resource-3"] {
			t.Fatal("other resources should stay available")
		}
	})

	t.Run("non-overlapping patterns leave everything available", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		other := recurrence.Slot{Day: time.Wednesday, Start: civil.LocalTime{Hour: 14}, End: civil.LocalTime{Hour: 15}}
		commitments := []Commitment{
			{ID: "enrollment-2", ResourceID: strPtr("resource-1"), Pattern: &other},
		}

		available, _ := AvailabilityMap(Candidate{Pattern: &slot}, commitments, resourcePool(), time.UTC)
		for id, free := range available {
			if !free {
				t.Fatalf("resource %s unexpectedly unavailable", id)
			}
		}
	})

	t.Run("downgrade is monotonic across commitments", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		free := recurrence.Slot{Day: time.Friday, Start: civil.LocalTime{Hour: 9}, End: civil.LocalTime{Hour: 10}}
		commitments := []Commitment{
			{ID: "enrollment-2", ResourceID: strPtr("resource-1"), Pattern: &slot},
			{ID: "enrollment-3", ResourceID: strPtr("resource-1"), Pattern: &free},
		}

		available, _ := AvailabilityMap(Candidate{Pattern: &slot}, commitments, resourcePool(), time.UTC)
		if available["resource-1"] {
			t.Fatal("a later non-conflicting commitment must not restore availability")
		}
	})
}

func TestAvailabilityMap_WindowCandidates(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.June, 4, 14, 0, 0, 0, time.UTC)

	t.Run("overlapping concrete windows conflict", func(t *testing.T) {
		t.Parallel()

		commitments := []Commitment{
			{
				ID:         "lesson-9",
				ResourceID: strPtr("resource-2"),
				Window:     &Window{Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute)},
			},
		}

		candidate := Candidate{Window: &Window{Start: start, End: start.Add(time.Hour)}}
		available, _ := AvailabilityMap(candidate, commitments, resourcePool(), time.UTC)
		if available["resource-2"] {
			t.Fatal("resource-2 should be unavailable")
		}
	})

	t.Run("windows outside the search radius are ignored", func(t *testing.T) {
		t.Parallel()

		commitments := []Commitment{
			{
				ID:         "lesson-9",
				ResourceID: strPtr("resource-2"),
				Window:     &Window{Start: start.Add(20 * time.Hour), End: start.Add(21 * time.Hour)},
			},
		}

		candidate := Candidate{Window: &Window{Start: start, End: start.Add(time.Hour)}}
		available, _ := AvailabilityMap(candidate, commitments, resourcePool(), time.UTC)
		if !available["resource-2"] {
			t.Fatal("a lesson a day away cannot conflict")
		}
	})

	t.Run("touching endpoints do not conflict", func(t *testing.T) {
		t.Parallel()

		commitments := []Commitment{
			{
				ID:         "lesson-9",
				ResourceID: strPtr("resource-2"),
				Window:     &Window{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)},
			},
		}

		candidate := Candidate{Window: &Window{Start: start, End: start.Add(time.Hour)}}
		available, _ := AvailabilityMap(candidate, commitments, resourcePool(), time.UTC)
		if !available["resource-2"] {
			t.Fatal("adjacent windows must not conflict")
		}
	})

	t.Run("patterns conflict with concrete windows on the same weekday", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		commitments := []Commitment{
			{ID: "enrollment-2", ResourceID: strPtr("resource-3"), Pattern: &slot},
		}

		// 2024-06-04 is a Tuesday; the pattern resolves into the same week.
		candidate := Candidate{Window: &Window{Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute)}}
		available, _ := AvailabilityMap(candidate, commitments, resourcePool(), time.UTC)
		if available["resource-3"] {
			t.Fatal("resource-3 should be unavailable")
		}
	})
}

func TestAvailabilityMap_Degradation(t *testing.T) {
	t.Parallel()

	t.Run("unresolvable commitments are skipped, not fatal", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		broken := recurrence.Slot{Day: time.Monday, Start: civil.LocalTime{Hour: 11}, End: civil.LocalTime{Hour: 10}}
		commitments := []Commitment{
			{ID: "enrollment-bad", ResourceID: strPtr("resource-1"), Pattern: &broken},
			{ID: "enrollment-2", ResourceID: strPtr("resource-2"), Pattern: &slot},
		}

		available, skipped := AvailabilityMap(Candidate{Pattern: &slot}, commitments, resourcePool(), time.UTC)
		if len(skipped) != 1 || skipped[0].CommitmentID != "enrollment-bad" {
			t.Fatalf("skipped = %v, want the malformed commitment", skipped)
		}
		if !available["resource-1"] {
			t.Fatal("a malformed commitment must be treated as a non-conflict")
		}
		if available["resource-2"] {
			t.Fatal("well-formed commitments must still conflict")
		}
	})

	t.Run("no commitments means everything is available", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		available, skipped := AvailabilityMap(Candidate{Pattern: &slot}, nil, resourcePool(), time.UTC)
		if len(skipped) != 0 {
			t.Fatalf("unexpected skipped: %v", skipped)
		}
		for id, free := range available {
			if !free {
				t.Fatalf("resource %s should be available", id)
			}
		}
	})

	t.Run("empty resource pool yields an empty map", func(t *testing.T) {
		t.Parallel()

		slot := tuesdaySlot()
		available, _ := AvailabilityMap(Candidate{Pattern: &slot}, nil, nil, time.UTC)
		if len(available) != 0 {
			t.Fatalf("expected empty map, got %v", available)
		}
	})
}
