// Package recurrence expands weekly enrollment patterns into concrete
// occurrences for a target week.
package recurrence

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
)

// Frequency represents supported recurrence cadences.
type Frequency int

const (
	// FrequencyUnspecified indicates the cadence is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyWeekly generates one occurrence per slot every week.
	FrequencyWeekly
	// FrequencyBiweekly generates occurrences on alternating weeks, anchored
	// to the week containing the rule's start date.
	FrequencyBiweekly
	// FrequencyMonthly generates occurrences only in weeks where the matched
	// date shares the weekday ordinal of the first occurrence (e.g. the
	// second Tuesday of each month).
	FrequencyMonthly
)

// ParseFrequency resolves a stored cadence name.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "weekly":
		return FrequencyWeekly, nil
	case "biweekly":
		return FrequencyBiweekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	}
	return FrequencyUnspecified, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
}

// String renders the cadence in its stored form.
func (f Frequency) String() string {
	switch f {
	case FrequencyWeekly:
		return "weekly"
	case FrequencyBiweekly:
		return "biweekly"
	case FrequencyMonthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

// Slot describes one weekly recurring window: a weekday plus a start and end
// time of day. Overnight wraparound is not supported.
type Slot struct {
	Day   time.Weekday
	Start civil.LocalTime
	End   civil.LocalTime
}

// Validate reports whether the slot describes a usable window.
func (s Slot) Validate() error {
	if !s.Start.Valid() || !s.End.Valid() {
		return ErrInvalidSlot
	}
	if !s.Start.Before(s.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidSlot, s.Start, s.End)
	}
	return nil
}

// Overlaps reports whether two slots intersect on the same weekday. Touching
// endpoints do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	if s.Day != other.Day {
		return false
	}
	return s.Start.Minutes() < other.End.Minutes() && other.Start.Minutes() < s.End.Minutes()
}

// Contains reports whether the entire window of other lies within s.
func (s Slot) Contains(other Slot) bool {
	if s.Day != other.Day {
		return false
	}
	return s.Start.Minutes() <= other.Start.Minutes() && other.End.Minutes() <= s.End.Minutes()
}

// Minutes returns the window length in minutes.
func (s Slot) Minutes() int {
	return s.End.Minutes() - s.Start.Minutes()
}

// Rule describes the recurring pattern of an enrollment.
type Rule struct {
	EnrollmentID string
	Slots        []Slot
	Frequency    Frequency
	StartsOn     time.Time
	EndsOn       *time.Time
}

// ErrInvalidFrequency indicates the recurrence cadence is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidSlot indicates a slot that cannot drive generation.
var ErrInvalidSlot = errors.New("recurrence: invalid slot")

// ErrMissingStart indicates the rule carries no start date.
var ErrMissingStart = errors.New("recurrence: rule start date is required")

// Engine resolves rules against target weeks in a fixed location.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that resolves occurrences in the provided
// location. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone the engine resolves occurrences in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// NextOccurrence produces the zero-or-one occurrence of slot within the week
// beginning at weekStart.
//
// The matched date is resolved through civil.ToInstant so the zone offset is
// re-evaluated for that specific date. If week-boundary arithmetic lands the
// candidate one week outside [weekStart, weekStart+7d), it is normalized by
// shifting ±7 days; this is defensive correction, not cadence logic.
func (e *Engine) NextOccurrence(rule Rule, slot Slot, weekStart time.Time) (time.Time, bool, error) {
	loc := e.Location()

	if rule.StartsOn.IsZero() {
		return time.Time{}, false, ErrMissingStart
	}
	if err := slot.Validate(); err != nil {
		return time.Time{}, false, err
	}
	if rule.Frequency == FrequencyUnspecified {
		return time.Time{}, false, ErrInvalidFrequency
	}

	weekStart = civil.WeekStart(weekStart, loc)
	weekEnd := civil.WeekEnd(weekStart)

	at, err := civil.ToInstant(slot.Day, slot.Start, weekStart, loc)
	if err != nil {
		return time.Time{}, false, err
	}

	// Defensive normalization for week-boundary off-by-ones.
	if at.Before(weekStart) {
		at = at.AddDate(0, 0, 7)
	} else if !at.Before(weekEnd) {
		at = at.AddDate(0, 0, -7)
	}

	startBound := startOfDay(rule.StartsOn, loc)
	if at.Before(startBound) {
		return time.Time{}, false, nil
	}
	if rule.EndsOn != nil {
		endBound := startOfDay(*rule.EndsOn, loc).AddDate(0, 0, 1)
		if !at.Before(endBound) {
			return time.Time{}, false, nil
		}
	}

	on, err := e.cadenceMatches(rule, slot, weekStart, at, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	if !on {
		return time.Time{}, false, nil
	}

	return at, true, nil
}

func (e *Engine) cadenceMatches(rule Rule, slot Slot, weekStart, at time.Time, loc *time.Location) (bool, error) {
	switch rule.Frequency {
	case FrequencyWeekly:
		return true, nil
	case FrequencyBiweekly:
		anchor := civil.WeekStart(rule.StartsOn, loc)
		return weeksBetween(anchor, weekStart)%2 == 0, nil
	case FrequencyMonthly:
		first := firstMatchingDate(rule.StartsOn, slot.Day, loc)
		return weekdayOrdinal(first) == weekdayOrdinal(at.In(loc)), nil
	default:
		return false, ErrInvalidFrequency
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// weeksBetween counts whole weeks from a to b. Rounding absorbs the ±1 hour
// drift of weeks that contain a daylight-saving transition.
func weeksBetween(a, b time.Time) int {
	weeks := b.Sub(a).Hours() / (24 * 7)
	return int(math.Round(weeks))
}

// firstMatchingDate finds the first calendar date on or after start whose
// weekday matches day.
func firstMatchingDate(start time.Time, day time.Weekday, loc *time.Location) time.Time {
	date := startOfDay(start, loc)
	shift := (int(day) - int(date.Weekday()) + 7) % 7
	return date.AddDate(0, 0, shift)
}

// weekdayOrdinal returns which occurrence of its weekday within the month the
// date is: 1 for the first, 2 for the second, and so on.
func weekdayOrdinal(t time.Time) int {
	return (t.Day()-1)/7 + 1
}
