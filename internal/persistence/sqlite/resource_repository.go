package sqlite

import (
	"context"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewResourceRepository creates a new SQLite meeting-resource repository.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateResource inserts a new meeting resource.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.MeetingResource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO meeting_resources (id, name, external_link, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		resource.ID,
		resource.Name,
		resource.ExternalLink,
		resource.CreatedAt.Format(time.RFC3339),
		resource.UpdatedAt.Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// UpdateResource updates an existing meeting resource.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.MeetingResource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE meeting_resources
		SET name = ?, external_link = ?, updated_at = ?
		WHERE id = ?`,
		resource.Name,
		resource.ExternalLink,
		time.Now().UTC().Format(time.RFC3339),
		resource.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return ensureRowAffected(result)
}

// GetResource retrieves a meeting resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.MeetingResource, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, external_link, created_at, updated_at
		FROM meeting_resources WHERE id = ?`, id)

	var resource persistence.MeetingResource
	var createdAt, updatedAt string
	if err := row.Scan(&resource.ID, &resource.Name, &resource.ExternalLink, &createdAt, &updatedAt); err != nil {
		return persistence.MeetingResource{}, r.mapper.MapError(err)
	}
	resource.CreatedAt = parseTimestamp(createdAt)
	resource.UpdatedAt = parseTimestamp(updatedAt)
	return resource, nil
}

// ListResources returns the whole meeting pool ordered by name.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.MeetingResource, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, external_link, created_at, updated_at
		FROM meeting_resources ORDER BY name, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var resources []persistence.MeetingResource
	for rows.Next() {
		var resource persistence.MeetingResource
		var createdAt, updatedAt string
		if err := rows.Scan(&resource.ID, &resource.Name, &resource.ExternalLink, &createdAt, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		resource.CreatedAt = parseTimestamp(createdAt)
		resource.UpdatedAt = parseTimestamp(updatedAt)
		resources = append(resources, resource)
	}
	return resources, rows.Err()
}

// DeleteResource removes a meeting resource by ID.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM meeting_resources WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return ensureRowAffected(result)
}
