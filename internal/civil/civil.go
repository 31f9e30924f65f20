// Package civil models wall-clock values (weekday + time of day) that carry no
// fixed UTC offset until resolved against a named zone and a calendar date.
package civil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime indicates a time-of-day value that cannot be resolved.
var ErrInvalidTime = errors.New("civil: invalid time of day")

// ErrInvalidWeekday indicates a weekday name that cannot be resolved.
var ErrInvalidWeekday = errors.New("civil: invalid weekday")

// ErrInvalidAnchor indicates a zero week anchor was supplied.
var ErrInvalidAnchor = errors.New("civil: week anchor is required")

// LocalTime is a wall-clock time of day with minute precision.
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime parses a "15:04" formatted time of day.
func ParseLocalTime(value string) (LocalTime, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	t := LocalTime{Hour: hour, Minute: minute}
	if !t.Valid() {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return t, nil
}

// Valid reports whether the value names a real minute of the day.
func (t LocalTime) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// IsZero reports whether the value is the zero LocalTime (midnight).
func (t LocalTime) IsZero() bool {
	return t.Hour == 0 && t.Minute == 0
}

// Minutes returns the value as minutes elapsed since midnight.
func (t LocalTime) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is earlier in the day than other.
func (t LocalTime) Before(other LocalTime) bool {
	return t.Minutes() < other.Minutes()
}

// Add returns the value shifted by the given number of minutes. The result is
// clamped to the same day.
func (t LocalTime) Add(minutes int) LocalTime {
	total := t.Minutes() + minutes
	if total < 0 {
		total = 0
	}
	if total > 24*60-1 {
		total = 24*60 - 1
	}
	return FromMinutes(total)
}

// FromMinutes builds a LocalTime from minutes since midnight.
func FromMinutes(minutes int) LocalTime {
	return LocalTime{Hour: minutes / 60, Minute: minutes % 60}
}

// String renders the value in "15:04" form.
func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseWeekday resolves an English weekday name, case-insensitively.
func ParseWeekday(value string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("%w: %q", ErrInvalidWeekday, value)
}

// ToInstant resolves a civil (weekday, time of day) pair against the week
// anchored at weekStart and returns the absolute instant.
//
// The instant is constructed with time.Date in the target location, so the
// zone offset is the one in force on that specific calendar date. Weeks that
// contain a daylight-saving transition therefore resolve to the
// post-transition offset instead of a naive fixed-offset shift.
func ToInstant(day time.Weekday, t LocalTime, weekStart time.Time, loc *time.Location) (time.Time, error) {
	if weekStart.IsZero() {
		return time.Time{}, ErrInvalidAnchor
	}
	if !t.Valid() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTime, t)
	}
	if loc == nil {
		loc = weekStart.Location()
	}

	anchor := weekStart.In(loc)
	offset := (int(day) - int(anchor.Weekday()) + 7) % 7
	date := anchor.AddDate(0, 0, offset)

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, loc), nil
}

// WeekStart returns midnight of the Monday beginning the week that contains
// the reference instant, evaluated in the given location.
func WeekStart(reference time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = reference.Location()
	}
	local := reference.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	// Adjust so Monday is start of week. In Go, Monday == 1, Sunday == 0.
	shift := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -shift)
}

// WeekEnd returns the exclusive upper bound of the week beginning at
// weekStart, i.e. midnight of the following Monday.
func WeekEnd(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 7)
}
