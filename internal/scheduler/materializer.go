package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/recurrence"
)

// EnrollmentPlan couples an enrollment's recurrence rule with the fields
// copied onto the sessions it generates.
type EnrollmentPlan struct {
	EnrollmentID      string
	StudentID         string
	TutorID           string
	Rule              recurrence.Rule
	DurationHours     float64
	MeetingResourceID *string
	Paused            bool
	Summary           string
}

// BookedSession is the minimal view of an already-materialized session needed
// to build the deduplication index.
type BookedSession struct {
	StudentID string
	TutorID   string
	StartsAt  time.Time
}

// NewSession is a session row produced by materialization, not yet persisted.
type NewSession struct {
	EnrollmentID      string
	StudentID         string
	TutorID           string
	StartsAt          time.Time
	DurationHours     float64
	MeetingResourceID *string
	Summary           string
}

// SkippedEnrollment reports an enrollment that could not be materialized this
// run. One enrollment's malformed pattern never aborts the batch.
type SkippedEnrollment struct {
	EnrollmentID string
	Reason       string
}

// MaterializeResult is the outcome of one weekly materialization run.
type MaterializeResult struct {
	Created []NewSession
	Skipped []SkippedEnrollment
}

// DedupKey derives the stable identity of a session occurrence: student,
// tutor, and the start instant rounded down to the minute in UTC. The same
// derivation backs the persistence uniqueness constraint, so re-running a
// week is a no-op.
func DedupKey(studentID, tutorID string, at time.Time) string {
	return strings.Join([]string{
		studentID,
		tutorID,
		at.UTC().Truncate(time.Minute).Format(time.RFC3339),
	}, "|")
}

// Materialize produces the new sessions for the week beginning at weekStart.
//
// Existing sessions seed the dedup index and are never mutated. Paused
// enrollments generate nothing. Enrollments with malformed durations or slots
// are reported in Skipped while the rest of the batch proceeds. The returned
// batch is expected to be persisted atomically by the caller.
func Materialize(engine *recurrence.Engine, weekStart time.Time, plans []EnrollmentPlan, existing []BookedSession) MaterializeResult {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}

	index := make(map[string]struct{}, len(existing))
	for _, booked := range existing {
		index[DedupKey(booked.StudentID, booked.TutorID, booked.StartsAt)] = struct{}{}
	}

	result := MaterializeResult{}

	for _, plan := range plans {
		if plan.Paused {
			continue
		}
		if plan.DurationHours <= 0 {
			result.Skipped = append(result.Skipped, SkippedEnrollment{
				EnrollmentID: plan.EnrollmentID,
				Reason:       "duration must be positive",
			})
			continue
		}
		if len(plan.Rule.Slots) == 0 {
			result.Skipped = append(result.Skipped, SkippedEnrollment{
				EnrollmentID: plan.EnrollmentID,
				Reason:       "no availability slots",
			})
			continue
		}

		for i, slot := range plan.Rule.Slots {
			at, ok, err := engine.NextOccurrence(plan.Rule, slot, weekStart)
			if err != nil {
				result.Skipped = append(result.Skipped, SkippedEnrollment{
					EnrollmentID: plan.EnrollmentID,
					Reason:       fmt.Sprintf("slot %d: %v", i, err),
				})
				continue
			}
			if !ok {
				continue
			}

			key := DedupKey(plan.StudentID, plan.TutorID, at)
			if _, seen := index[key]; seen {
				continue
			}
			index[key] = struct{}{}

			result.Created = append(result.Created, NewSession{
				EnrollmentID:      plan.EnrollmentID,
				StudentID:         plan.StudentID,
				TutorID:           plan.TutorID,
				StartsAt:          at,
				DurationHours:     plan.DurationHours,
				MeetingResourceID: cloneString(plan.MeetingResourceID),
				Summary:           plan.Summary,
			})
		}
	}

	return result
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
