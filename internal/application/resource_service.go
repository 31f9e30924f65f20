package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/scheduler"
)

// ResourceService orchestrates the shared meeting pool: CRUD for resources and
// availability probes against existing claims.
type ResourceService struct {
	resources   persistence.ResourceRepository
	enrollments persistence.EnrollmentRepository
	lessons     persistence.LessonRepository
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService wires dependencies for meeting-resource operations.
func NewResourceService(resources persistence.ResourceRepository, enrollments persistence.EnrollmentRepository, lessons persistence.LessonRepository, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if location == nil {
		location = time.UTC
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		resources:   resources,
		enrollments: enrollments,
		lessons:     lessons,
		location:    location,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateResource adds an entry to the meeting pool for administrators.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}
	if !params.Principal.IsAdmin() {
		return Resource{}, ErrUnauthorized
	}

	input := normalizeResourceInput(params.Input)
	if vErr := validateResourceInput(input); vErr.HasErrors() {
		return Resource{}, vErr
	}

	now := s.now()
	record := persistence.MeetingResource{
		ID:           s.idGenerator(),
		Name:         input.Name,
		ExternalLink: input.ExternalLink,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if s.resources == nil {
		return resourceFromRecord(record), nil
	}
	if err := s.resources.CreateResource(ctx, record); err != nil {
		return Resource{}, mapRepoError(err)
	}
	return resourceFromRecord(record), nil
}

// UpdateResource updates a pool entry for administrators.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}
	if !params.Principal.IsAdmin() {
		return Resource{}, ErrUnauthorized
	}
	if s.resources == nil {
		return Resource{}, fmt.Errorf("resource repository not configured")
	}

	existing, err := s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		return Resource{}, mapRepoError(err)
	}

	input := normalizeResourceInput(params.Input)
	if vErr := validateResourceInput(input); vErr.HasErrors() {
		return Resource{}, vErr
	}

	updated := existing
	updated.Name = input.Name
	updated.ExternalLink = input.ExternalLink
	updated.UpdatedAt = s.now()

	if err := s.resources.UpdateResource(ctx, updated); err != nil {
		return Resource{}, mapRepoError(err)
	}
	return resourceFromRecord(updated), nil
}

// GetResource returns one pool entry.
func (s *ResourceService) GetResource(ctx context.Context, principal Principal, resourceID string) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return Resource{}, fmt.Errorf("resource repository not configured")
	}

	record, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return Resource{}, mapRepoError(err)
	}
	return resourceFromRecord(record), nil
}

// ListResources returns the whole meeting pool.
func (s *ResourceService) ListResources(ctx context.Context, principal Principal) ([]Resource, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return nil, nil
	}

	records, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]Resource, 0, len(records))
	for _, record := range records {
		out = append(out, resourceFromRecord(record))
	}
	return out, nil
}

// DeleteResource removes a pool entry for administrators.
func (s *ResourceService) DeleteResource(ctx context.Context, principal Principal, resourceID string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.resources == nil {
		return fmt.Errorf("resource repository not configured")
	}

	if err := s.resources.DeleteResource(ctx, resourceID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// CheckAvailability reports, per pool entry, whether the candidate window is
// free of conflicting claims. Unresolvable claims degrade to available and are
// logged rather than failing the probe.
func (s *ResourceService) CheckAvailability(ctx context.Context, params ResourceAvailabilityParams) ([]ResourceAvailability, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return nil, fmt.Errorf("resource repository not configured")
	}

	candidate, vErr := s.buildCandidate(params)
	if vErr.HasErrors() {
		return nil, vErr
	}

	records, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	pool := make([]scheduler.Resource, 0, len(records))
	for _, record := range records {
		pool = append(pool, scheduler.Resource{ID: record.ID, Name: record.Name, ExternalLink: record.ExternalLink})
	}

	commitments, err := collectResourceCommitments(ctx, s.enrollments, s.lessons, candidate, s.now(), "", "")
	if err != nil {
		return nil, err
	}

	availableByID, skipped := scheduler.AvailabilityMap(candidate, commitments, pool, s.location)
	logger := serviceLogger(ctx, s.logger, "ResourceService", "CheckAvailability")
	for _, sk := range skipped {
		logger.WarnContext(ctx, "skipped unresolvable commitment", "commitment_id", sk.CommitmentID, "reason", sk.Reason)
	}

	out := make([]ResourceAvailability, 0, len(records))
	for _, record := range records {
		out = append(out, ResourceAvailability{
			Resource:  resourceFromRecord(record),
			Available: availableByID[record.ID],
		})
	}
	return out, nil
}

func (s *ResourceService) buildCandidate(params ResourceAvailabilityParams) (scheduler.Candidate, *ValidationError) {
	vErr := &ValidationError{}
	switch {
	case params.Window != nil && params.Pattern != nil:
		vErr.add("candidate", "provide either a concrete window or a weekly pattern, not both")
		return scheduler.Candidate{}, vErr
	case params.Window != nil:
		if params.Window.Start.IsZero() || params.Window.End.IsZero() || !params.Window.Start.Before(params.Window.End) {
			vErr.add("window", "the window start must be before its end")
			return scheduler.Candidate{}, vErr
		}
		window := *params.Window
		return scheduler.Candidate{Window: &window}, vErr
	case params.Pattern != nil:
		slot, err := slotFromInput(*params.Pattern)
		if err != nil {
			vErr.add("pattern", "the weekly pattern is invalid")
			return scheduler.Candidate{}, vErr
		}
		return scheduler.Candidate{Pattern: &slot}, vErr
	default:
		vErr.add("candidate", "a concrete window or a weekly pattern is required")
		return scheduler.Candidate{}, vErr
	}
}

// collectResourceCommitments gathers existing claims on the pool: weekly
// patterns from resource-backed enrollments and, for concrete candidates,
// nearby booked lessons. excludeEnrollmentID and excludeLessonID drop the
// record being edited so it does not conflict with itself.
func collectResourceCommitments(ctx context.Context, enrollmentRepo persistence.EnrollmentRepository, lessonRepo persistence.LessonRepository, candidate scheduler.Candidate, reference time.Time, excludeEnrollmentID, excludeLessonID string) ([]scheduler.Commitment, error) {
	var commitments []scheduler.Commitment

	if enrollmentRepo != nil {
		enrollments, err := enrollmentRepo.ListEnrollments(ctx, persistence.EnrollmentFilter{ActiveOn: &reference})
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, enrollment := range enrollments {
			if enrollment.ID == excludeEnrollmentID {
				continue
			}
			if enrollment.MeetingResourceID == nil || *enrollment.MeetingResourceID == "" {
				continue
			}
			for i, stored := range enrollment.Slots {
				slot, err := slotFromInput(SlotInput{Weekday: stored.Weekday, StartTime: stored.StartTime, EndTime: stored.EndTime})
				if err != nil {
					// Malformed rows degrade to non-conflicts; AvailabilityMap
					// logs the rest of the skips.
					continue
				}
				commitments = append(commitments, scheduler.Commitment{
					ID:         fmt.Sprintf("%s#%d", enrollment.ID, i),
					ResourceID: cloneStringPtr(enrollment.MeetingResourceID),
					Pattern:    &slot,
				})
			}
		}
	}

	if lessonRepo != nil && candidate.Window != nil {
		after := candidate.Window.Start.Add(-24 * time.Hour)
		before := candidate.Window.End.Add(24 * time.Hour)
		lessons, err := lessonRepo.ListLessons(ctx, persistence.LessonFilter{
			StartsAfter: &after,
			EndsBefore:  &before,
			Statuses:    []string{LessonStatusActive},
		})
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, lesson := range lessons {
			if lesson.ID == excludeLessonID {
				continue
			}
			if lesson.MeetingResourceID == nil || *lesson.MeetingResourceID == "" {
				continue
			}
			window := scheduler.Window{
				Start: lesson.StartsAt,
				End:   lesson.StartsAt.Add(durationFromHours(lesson.DurationHours)),
			}
			commitments = append(commitments, scheduler.Commitment{
				ID:         lesson.ID,
				ResourceID: cloneStringPtr(lesson.MeetingResourceID),
				Window:     &window,
			})
		}
	}

	return commitments, nil
}

func durationFromHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func normalizeResourceInput(input ResourceInput) ResourceInput {
	return ResourceInput{
		Name:         strings.TrimSpace(input.Name),
		ExternalLink: strings.TrimSpace(input.ExternalLink),
	}
}

func validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	return vErr
}
