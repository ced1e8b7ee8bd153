package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

const classColumns = `id, owner_id, name, grade_level, subject, color, announcements, assessments, created_at, updated_at`

// ClassRepository persists class rows. Announcements and assessments are
// JSONB columns, so every change to them rewrites the row.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListByOwner returns every class of a teacher ordered by name then subject.
func (r *ClassRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ClassRoom, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE owner_id = $1 ORDER BY name ASC, subject ASC NULLS FIRST`
	var classes []models.ClassRoom
	if err := r.db.SelectContext(ctx, &classes, query, ownerID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassRoom, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.ClassRoom
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a class row.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassRoom) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	if class.Announcements == nil {
		class.Announcements = models.Announcements{}
	}
	if class.Assessments == nil {
		class.Assessments = models.ClassAssessments{}
	}
	const query = `INSERT INTO classes (id, owner_id, name, grade_level, subject, color, announcements, assessments, created_at, updated_at)
VALUES (:id, :owner_id, :name, :grade_level, :subject, :color, :announcements, :assessments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a class.
func (r *ClassRepository) Update(ctx context.Context, id string, update models.ClassUpdate) error {
	const query = `UPDATE classes SET name = $2, grade_level = $3, subject = $4, color = $5, announcements = $6, assessments = $7, updated_at = $8 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, update.Name, update.GradeLevel, update.Subject, update.Color, update.Announcements, update.Assessments, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a class. Enrollments reference classes with ON DELETE
// RESTRICT, as do resources, so a class that still has students or attached
// resources fails with a foreign key error.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return expectAffected(res)
}

// expectAffected turns a write that matched no row into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
