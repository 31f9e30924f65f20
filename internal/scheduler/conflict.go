// Package scheduler holds the pure scheduling core: meeting-resource conflict
// detection and weekly session materialization. All functions operate on
// in-memory inputs assembled by callers and never touch persistence.
package scheduler

import (
	"fmt"
	"time"

	"github.com/example/tutoring-scheduler/internal/civil"
	"github.com/example/tutoring-scheduler/internal/recurrence"
)

// adHocSearchRadius bounds how far around a concrete candidate window other
// concrete commitments are considered. Sessions further away can never
// overlap a single-lesson window and are not worth resolving.
const adHocSearchRadius = 12 * time.Hour

// referenceDate anchors the week used to compare two weekly patterns. Any
// week works as long as both sides resolve against the same one; a fixed
// date keeps the comparison deterministic.
var referenceDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Resource is a shared meeting endpoint assignable to enrollments and
// sessions.
type Resource struct {
	ID           string
	Name         string
	ExternalLink string
}

// Window is a concrete absolute time interval, half-open: [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two windows intersect. Identical windows overlap;
// touching endpoints do not.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Commitment is an existing claim on a meeting resource: either a concrete
// session window or an enrollment's weekly pattern. Exactly one of Window and
// Pattern should be set.
type Commitment struct {
	ID         string
	ResourceID *string
	Window     *Window
	Pattern    *recurrence.Slot
}

// Candidate is the window being probed for resource availability. Exactly one
// of Window and Pattern should be set.
type Candidate struct {
	Window  *Window
	Pattern *recurrence.Slot
}

// SkippedCommitment reports a commitment whose time could not be resolved.
// Such commitments are treated as non-conflicts so that malformed rows
// degrade availability hints instead of failing them.
type SkippedCommitment struct {
	CommitmentID string
	Reason       string
}

// AvailabilityMap computes, for each resource, whether the candidate window
// is free of overlapping commitments on that resource.
//
// Every resource starts available and is downgraded on the first overlap; an
// entry is never upgraded back. Commitments without a resource or without a
// resolvable time window do not conflict; unresolvable ones are reported in
// the skipped list for callers to log.
func AvailabilityMap(candidate Candidate, commitments []Commitment, resources []Resource, loc *time.Location) (map[string]bool, []SkippedCommitment) {
	if loc == nil {
		loc = time.UTC
	}

	available := make(map[string]bool, len(resources))
	for _, resource := range resources {
		available[resource.ID] = true
	}

	windows, err := candidateWindows(candidate, loc)
	if err != nil || len(windows) == 0 {
		// An unresolvable candidate can never overlap anything.
		return available, nil
	}

	var skipped []SkippedCommitment
	for _, commitment := range commitments {
		if commitment.ResourceID == nil || *commitment.ResourceID == "" {
			continue
		}
		if _, tracked := available[*commitment.ResourceID]; !tracked {
			continue
		}

		window, ok, err := resolveCommitment(commitment, windows[0], loc)
		if err != nil {
			skipped = append(skipped, SkippedCommitment{CommitmentID: commitment.ID, Reason: err.Error()})
			continue
		}
		if !ok {
			continue
		}

		for _, cw := range windows {
			if cw.Overlaps(window) {
				available[*commitment.ResourceID] = false
				break
			}
		}
	}

	return available, skipped
}

// candidateWindows resolves the candidate to one or more concrete windows.
// A pattern candidate resolves against the shared reference week.
func candidateWindows(candidate Candidate, loc *time.Location) ([]Window, error) {
	switch {
	case candidate.Window != nil:
		w := *candidate.Window
		if w.Start.IsZero() || w.End.IsZero() || !w.Start.Before(w.End) {
			return nil, fmt.Errorf("scheduler: candidate window is not a valid interval")
		}
		return []Window{w}, nil
	case candidate.Pattern != nil:
		w, err := patternWindow(*candidate.Pattern, referenceWeek(loc), loc)
		if err != nil {
			return nil, err
		}
		return []Window{w}, nil
	default:
		return nil, nil
	}
}

// resolveCommitment produces the commitment window to test against the
// candidate, or ok=false when the commitment cannot conflict by construction.
func resolveCommitment(commitment Commitment, against Window, loc *time.Location) (Window, bool, error) {
	switch {
	case commitment.Window != nil:
		w := *commitment.Window
		if w.Start.IsZero() || w.End.IsZero() {
			return Window{}, false, fmt.Errorf("scheduler: commitment window is missing bounds")
		}
		// Bounded search: concrete sessions far from the candidate cannot
		// overlap it.
		if w.End.Before(against.Start.Add(-adHocSearchRadius)) || w.Start.After(against.End.Add(adHocSearchRadius)) {
			return Window{}, false, nil
		}
		return w, true, nil
	case commitment.Pattern != nil:
		// Resolve the pattern into the same week as the window it is being
		// compared with, so both sides share a calendar date and zone offset.
		week := civil.WeekStart(against.Start, loc)
		w, err := patternWindow(*commitment.Pattern, week, loc)
		if err != nil {
			return Window{}, false, err
		}
		return w, true, nil
	default:
		return Window{}, false, fmt.Errorf("scheduler: commitment has no window or pattern")
	}
}

func patternWindow(slot recurrence.Slot, weekStart time.Time, loc *time.Location) (Window, error) {
	if err := slot.Validate(); err != nil {
		return Window{}, err
	}
	start, err := civil.ToInstant(slot.Day, slot.Start, weekStart, loc)
	if err != nil {
		return Window{}, err
	}
	end, err := civil.ToInstant(slot.Day, slot.End, weekStart, loc)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

func referenceWeek(loc *time.Location) time.Time {
	return civil.WeekStart(referenceDate.In(loc), loc)
}
