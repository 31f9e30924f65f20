package application

import (
	"fmt"
	"time"

	"github.com/example/tutoring-scheduler/internal/availability"
	"github.com/example/tutoring-scheduler/internal/civil"
)

// PlannerService backs the interactive scheduling form: validating proposed
// weekly windows against open availability and generating the selectable time
// options. It is a pure calculation layer over the availability package.
type PlannerService struct{}

// NewPlannerService constructs a planner service.
func NewPlannerService() *PlannerService {
	return &PlannerService{}
}

// ValidateSlot checks a proposed window against the open windows and the
// already chosen selection. Rule failures come back as a rejected result with
// a display reason; only malformed open windows are errors.
func (s *PlannerService) ValidateSlot(params ValidateSlotParams) (SlotValidationResult, error) {
	if s == nil {
		return SlotValidationResult{}, fmt.Errorf("PlannerService is nil")
	}

	open, err := slotsFromInputs(params.Open)
	if err != nil {
		return SlotValidationResult{}, validationError("open", "the open windows are malformed")
	}
	selection, err := slotsFromInputs(params.Selection)
	if err != nil {
		return SlotValidationResult{}, validationError("selection", "the selected windows are malformed")
	}

	proposed, err := slotFromInput(params.Proposed)
	if err != nil {
		// A malformed proposal is user input, not a caller bug.
		return SlotValidationResult{Reason: "a day, start time, and end time are required"}, nil
	}

	outcome := availability.ValidateSlot(open, proposed, selection)
	result := SlotValidationResult{OK: outcome.OK, Reason: outcome.Reason}
	for _, slot := range outcome.Selection {
		result.Selection = append(result.Selection, slotToInput(slot))
	}
	return result, nil
}

// TimeOptions produces the selectable start and end times for a day at
// quarter-hour granularity. When a start is selected, end options are limited
// to the open window containing it.
func (s *PlannerService) TimeOptions(params TimeOptionsParams) (TimeOptionsResult, error) {
	if s == nil {
		return TimeOptionsResult{}, fmt.Errorf("PlannerService is nil")
	}
	if params.Weekday < 0 || params.Weekday > 6 {
		return TimeOptionsResult{}, validationError("weekday", "weekday must be between 0 and 6")
	}

	open, err := slotsFromInputs(params.Open)
	if err != nil {
		return TimeOptionsResult{}, validationError("open", "the open windows are malformed")
	}

	var selectedStart *civil.LocalTime
	if params.SelectedStart != "" {
		parsed, err := civil.ParseLocalTime(params.SelectedStart)
		if err != nil {
			return TimeOptionsResult{}, validationError("selected_start", "the selected start is not a valid time")
		}
		selectedStart = &parsed
	}

	starts, ends := availability.TimeOptions(time.Weekday(params.Weekday), open, selectedStart)

	result := TimeOptionsResult{}
	for _, t := range starts {
		result.Starts = append(result.Starts, t.String())
	}
	for _, t := range ends {
		result.Ends = append(result.Ends, t.String())
	}
	return result, nil
}

// OpenWindows intersects two parties' weekly availability into the windows
// both share, merged per day.
func (s *PlannerService) OpenWindows(params OpenWindowsParams) ([]SlotInput, error) {
	if s == nil {
		return nil, fmt.Errorf("PlannerService is nil")
	}

	first, err := slotsFromInputs(params.First)
	if err != nil {
		return nil, validationError("first", "the first availability set is malformed")
	}
	second, err := slotsFromInputs(params.Second)
	if err != nil {
		return nil, validationError("second", "the second availability set is malformed")
	}

	shared := availability.Intersect(first, second)
	out := make([]SlotInput, 0, len(shared))
	for _, slot := range shared {
		out = append(out, slotToInput(slot))
	}
	return out, nil
}

func validationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}
