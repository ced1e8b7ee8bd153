package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

// ResourceRepository persists shared resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ListByOwner returns a teacher's resources, newest first.
func (r *ResourceRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Resource, error) {
	const query = `SELECT id, owner_id, title, type, class_id, tags, subject, grade_level, created_at
FROM resources WHERE owner_id = $1 ORDER BY created_at DESC`
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, ownerID); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// Create inserts a resource.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}
	if resource.Tags == nil {
		resource.Tags = pq.StringArray{}
	}
	const query = `INSERT INTO resources (id, owner_id, title, type, class_id, tags, subject, grade_level, created_at)
VALUES (:id, :owner_id, :title, :type, :class_id, :tags, :subject, :grade_level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}
