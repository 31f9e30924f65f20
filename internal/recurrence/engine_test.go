package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func weeklyRule(slots ...Slot) Rule {
	return Rule{
		EnrollmentID: "enrollment-1",
		Slots:        slots,
		Frequency:    FrequencyWeekly,
		StartsOn:     date(2024, time.January, 1),
	}
}

func tuesdayAfternoon() Slot {
	return Slot{Day: time.Tuesday, Start: civil.LocalTime{Hour: 14}, End: civil.LocalTime{Hour: 15}}
}

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Frequency{
		"weekly":   FrequencyWeekly,
		"Biweekly": FrequencyBiweekly,
		"MONTHLY":  FrequencyMonthly,
	} {
		got, err := ParseFrequency(input)
		if err != nil {
			t.Fatalf("ParseFrequency(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseFrequency(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseFrequency("fortnightly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestSlot_Predicates(t *testing.T) {
	t.Parallel()

	nine := civil.LocalTime{Hour: 9}
	ten := civil.LocalTime{Hour: 10}
	eleven := civil.LocalTime{Hour: 11}

	base := Slot{Day: time.Monday, Start: nine, End: eleven}

	if !base.Contains(Slot{Day: time.Monday, Start: nine, End: ten}) {
		t.Fatal("expected containment of inner window")
	}
	if base.Contains(Slot{Day: time.Tuesday, Start: nine, End: ten}) {
		t.Fatal("containment must require the same weekday")
	}
	if !base.Overlaps(Slot{Day: time.Monday, Start: ten, End: civil.LocalTime{Hour: 12}}) {
		t.Fatal("expected overlap of intersecting windows")
	}
	if base.Overlaps(Slot{Day: time.Monday, Start: eleven, End: civil.LocalTime{Hour: 12}}) {
		t.Fatal("touching endpoints must not overlap")
	}

	if err := (Slot{Day: time.Monday, Start: ten, End: nine}).Validate(); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot for inverted window, got %v", err)
	}
}

func TestEngine_NextOccurrence(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)

	t.Run("produces the matching weekday of the target week", func(t *testing.T) {
		t.Parallel()

		at, ok, err := engine.NextOccurrence(weeklyRule(tuesdayAfternoon()), tuesdayAfternoon(), date(2024, time.June, 3))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if !ok {
			t.Fatal("expected an occurrence")
		}
		want := time.Date(2024, time.June, 4, 14, 0, 0, 0, time.UTC)
		if !at.Equal(want) {
			t.Fatalf("occurrence = %v, want %v", at, want)
		}
	})

	t.Run("suppresses occurrences before the start date", func(t *testing.T) {
		t.Parallel()

		rule := weeklyRule(tuesdayAfternoon())
		rule.StartsOn = date(2024, time.June, 10)

		_, ok, err := engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.June, 3))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if ok {
			t.Fatal("expected no occurrence before the start date")
		}
	})

	t.Run("treats the end date as inclusive", func(t *testing.T) {
		t.Parallel()

		rule := weeklyRule(tuesdayAfternoon())
		endsOn := date(2024, time.June, 4)
		rule.EndsOn = &endsOn

		_, ok, err := engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.June, 3))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if !ok {
			t.Fatal("expected an occurrence on the end date itself")
		}

		earlier := date(2024, time.June, 3)
		rule.EndsOn = &earlier
		_, ok, err = engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.June, 3))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if ok {
			t.Fatal("expected no occurrence past the end date")
		}
	})

	t.Run("biweekly alternates on week parity from the start week", func(t *testing.T) {
		t.Parallel()

		rule := weeklyRule(tuesdayAfternoon())
		rule.Frequency = FrequencyBiweekly
		rule.StartsOn = date(2024, time.January, 1) // a Monday

		cases := []struct {
			week time.Time
			on   bool
		}{
			{date(2024, time.January, 1), true},
			{date(2024, time.January, 8), false},
			{date(2024, time.January, 15), true},
			{date(2024, time.January, 22), false},
		}
		for _, tc := range cases {
			_, ok, err := engine.NextOccurrence(rule, tuesdayAfternoon(), tc.week)
			if err != nil {
				t.Fatalf("NextOccurrence(%v) returned error: %v", tc.week, err)
			}
			if ok != tc.on {
				t.Fatalf("week %v: occurrence = %v, want %v", tc.week, ok, tc.on)
			}
		}
	})

	t.Run("monthly fires on the matching weekday ordinal", func(t *testing.T) {
		t.Parallel()

		rule := weeklyRule(tuesdayAfternoon())
		rule.Frequency = FrequencyMonthly
		rule.StartsOn = date(2024, time.January, 1)
		// First occurrence is Tuesday 2024-01-02, the first Tuesday of January.

		_, ok, err := engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.February, 5))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if !ok {
			t.Fatal("expected occurrence on the first Tuesday of February")
		}

		_, ok, err = engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.February, 12))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if ok {
			t.Fatal("expected no occurrence on the second Tuesday of February")
		}
	})

	t.Run("resolves across daylight saving transitions", func(t *testing.T) {
		t.Parallel()

		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Fatalf("failed to load location: %v", err)
		}
		localEngine := NewEngine(ny)

		slot := Slot{Day: time.Sunday, Start: civil.LocalTime{Hour: 5}, End: civil.LocalTime{Hour: 6}}
		rule := weeklyRule(slot)

		at, ok, err := localEngine.NextOccurrence(rule, slot, time.Date(2024, time.March, 4, 0, 0, 0, 0, ny))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if !ok {
			t.Fatal("expected an occurrence")
		}
		// Sunday 2024-03-10 is the spring-forward date: 05:00 EDT, not EST.
		want := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
		if !at.Equal(want) {
			t.Fatalf("occurrence = %v, want %v", at.UTC(), want)
		}
	})

	t.Run("resolves a slot inside the skipped hour", func(t *testing.T) {
		t.Parallel()

		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Fatalf("failed to load location: %v", err)
		}
		localEngine := NewEngine(ny)

		slot := Slot{Day: time.Sunday, Start: civil.LocalTime{Hour: 2, Minute: 30}, End: civil.LocalTime{Hour: 3, Minute: 30}}
		rule := weeklyRule(slot)

		at, ok, err := localEngine.NextOccurrence(rule, slot, time.Date(2024, time.March, 4, 0, 0, 0, 0, ny))
		if err != nil {
			t.Fatalf("NextOccurrence returned error: %v", err)
		}
		if !ok {
			t.Fatal("expected an occurrence")
		}
		// 02:30 never happens on 2024-03-10; the post-transition -04:00
		// offset applies to the missing wall time, so the session lands at
		// 06:30 UTC rather than failing or shifting a full hour.
		want := time.Date(2024, time.March, 10, 6, 30, 0, 0, time.UTC)
		if !at.Equal(want) {
			t.Fatalf("occurrence = %v, want %v", at.UTC(), want)
		}
	})

	t.Run("reports malformed input", func(t *testing.T) {
		t.Parallel()

		rule := weeklyRule(tuesdayAfternoon())
		bad := Slot{Day: time.Tuesday, Start: civil.LocalTime{Hour: 15}, End: civil.LocalTime{Hour: 14}}
		if _, _, err := engine.NextOccurrence(rule, bad, date(2024, time.June, 3)); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("expected ErrInvalidSlot, got %v", err)
		}

		rule.StartsOn = time.Time{}
		if _, _, err := engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.June, 3)); !errors.Is(err, ErrMissingStart) {
			t.Fatalf("expected ErrMissingStart, got %v", err)
		}

		rule = weeklyRule(tuesdayAfternoon())
		rule.Frequency = FrequencyUnspecified
		if _, _, err := engine.NextOccurrence(rule, tuesdayAfternoon(), date(2024, time.June, 3)); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("expected ErrInvalidFrequency, got %v", err)
		}
	})
}
