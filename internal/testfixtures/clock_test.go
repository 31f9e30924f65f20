package testfixtures

import (
	"testing"
	"time"
)

func TestClock_DefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected reference time, got %v", clock.Now())
	}
}

func TestClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	advanced := clock.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !advanced.Equal(want) {
		t.Fatalf("expected %v after advance, got %v", want, advanced)
	}

	reset := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(reset)
	if !clock.Now().Equal(reset) {
		t.Fatalf("expected %v after set, got %v", reset, clock.Now())
	}
}

func TestClock_NilNowFuncFallsBack(t *testing.T) {
	var clock *Clock
	if clock.NowFunc()().IsZero() {
		t.Fatal("expected wall clock fallback for nil clock")
	}
}
