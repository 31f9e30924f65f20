// Package availability validates user-proposed weekly windows against the
// open windows shared by two parties, and generates the discrete time options
// offered by scheduling forms.
package availability

import (
	"sort"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
	"github.com/example/tutoring-scheduler/internal/recurrence"
)

// OptionStepMinutes is the granularity of selectable start and end times.
const OptionStepMinutes = 15

// Outcome is the result of validating a proposed window. Failures carry a
// reason string suitable for direct display in form feedback; they are not
// errors.
type Outcome struct {
	OK        bool
	Reason    string
	Selection []recurrence.Slot
}

func rejected(reason string) Outcome {
	return Outcome{Reason: reason}
}

// ValidateSlot checks a proposed window against the open windows and the
// slots already selected in the current form session. On success the proposed
// slot is appended to a copy of the selection.
//
// The whole proposed interval must lie within a single open window for its
// day: a proposal spanning the gap between two adjacent open windows is
// rejected so a lesson can never straddle time the parties are unavailable.
func ValidateSlot(open []recurrence.Slot, proposed recurrence.Slot, selection []recurrence.Slot) Outcome {
	if !proposed.Start.Valid() || !proposed.End.Valid() {
		return rejected("a day, start time, and end time are required")
	}
	if !proposed.Start.Before(proposed.End) {
		return rejected("the start time must be before the end time")
	}

	contained := false
	for _, window := range open {
		if window.Contains(proposed) {
			contained = true
			break
		}
	}
	if !contained {
		return rejected("the selected window must fall entirely within one open availability window")
	}

	for _, chosen := range selection {
		if chosen.Overlaps(proposed) {
			return rejected("the selected window overlaps a window you already added")
		}
	}

	updated := make([]recurrence.Slot, 0, len(selection)+1)
	updated = append(updated, selection...)
	updated = append(updated, proposed)
	return Outcome{OK: true, Selection: updated}
}

// TimeOptions produces the selectable start and end times for the given day
// at OptionStepMinutes granularity.
//
// Start options leave room for at least one step inside their open window.
// When selectedStart is set, end options are restricted to the open window
// containing it, so the resulting interval can never leave a single window;
// callers recompute ends whenever the start selection changes.
func TimeOptions(day time.Weekday, open []recurrence.Slot, selectedStart *civil.LocalTime) (starts, ends []civil.LocalTime) {
	windows := windowsForDay(day, open)

	for _, window := range windows {
		for m := window.Start.Minutes(); m+OptionStepMinutes <= window.End.Minutes(); m += OptionStepMinutes {
			starts = append(starts, civil.FromMinutes(m))
		}
	}
	starts = dedupeSorted(starts)

	if selectedStart != nil {
		for _, window := range windows {
			if window.Start.Minutes() <= selectedStart.Minutes() && selectedStart.Minutes() < window.End.Minutes() {
				for m := selectedStart.Minutes() + OptionStepMinutes; m <= window.End.Minutes(); m += OptionStepMinutes {
					ends = append(ends, civil.FromMinutes(m))
				}
				break
			}
		}
	} else {
		for _, window := range windows {
			for m := window.Start.Minutes() + OptionStepMinutes; m <= window.End.Minutes(); m += OptionStepMinutes {
				ends = append(ends, civil.FromMinutes(m))
			}
		}
	}
	ends = dedupeSorted(ends)

	return starts, ends
}

// Intersect computes the open windows common to two parties' weekly
// availability. Overlapping results on the same day are merged so containment
// checks see each contiguous stretch as one window.
func Intersect(a, b []recurrence.Slot) []recurrence.Slot {
	var out []recurrence.Slot
	for _, first := range a {
		for _, second := range b {
			if !first.Overlaps(second) {
				continue
			}
			start := first.Start
			if second.Start.Minutes() > start.Minutes() {
				start = second.Start
			}
			end := first.End
			if second.End.Minutes() < end.Minutes() {
				end = second.End
			}
			out = append(out, recurrence.Slot{Day: first.Day, Start: start, End: end})
		}
	}
	return mergeSlots(out)
}

func windowsForDay(day time.Weekday, open []recurrence.Slot) []recurrence.Slot {
	var windows []recurrence.Slot
	for _, window := range open {
		if window.Day == day && window.Validate() == nil {
			windows = append(windows, window)
		}
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.Minutes() < windows[j].Start.Minutes()
	})
	return windows
}

func mergeSlots(slots []recurrence.Slot) []recurrence.Slot {
	if len(slots) <= 1 {
		return slots
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		return slots[i].Start.Minutes() < slots[j].Start.Minutes()
	})

	merged := make([]recurrence.Slot, 0, len(slots))
	current := slots[0]
	for _, next := range slots[1:] {
		if next.Day == current.Day && next.Start.Minutes() <= current.End.Minutes() {
			if next.End.Minutes() > current.End.Minutes() {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)
	return merged
}

func dedupeSorted(values []civil.LocalTime) []civil.LocalTime {
	if len(values) == 0 {
		return values
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].Minutes() < values[j].Minutes()
	})
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
