package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments. Each row is keyed
// by (class_id, student_id) and carries the grade list as JSONB.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByClassIDs returns the enrolled-student views of the given classes,
// joined with their profiles.
func (r *EnrollmentRepository) ListByClassIDs(ctx context.Context, classIDs []string) ([]models.EnrolledStudent, error) {
	if len(classIDs) == 0 {
		return []models.EnrolledStudent{}, nil
	}
	const query = `SELECT e.id AS enrollment_id, e.class_id, e.behavior_notes, e.participation, e.grades,
        p.id, p.owner_id, p.name, p.registration_code, p.date_of_birth, p.learning_style, p.parent_contact, p.created_at, p.updated_at
        FROM enrollments e
        JOIN student_profiles p ON p.id = e.student_id
        WHERE e.class_id = ANY($1)
        ORDER BY p.name ASC`
	var students []models.EnrolledStudent
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return students, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Grades == nil {
		enrollment.Grades = models.StudentGrades{}
	}
	const query = `INSERT INTO enrollments (id, class_id, student_id, behavior_notes, participation, grades, created_at, updated_at)
        VALUES (:id, :class_id, :student_id, :behavior_notes, :participation, :grades, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update writes the provided fields of the (class, student) enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, classID, studentID string, update models.EnrollmentUpdate) error {
	sets := []string{}
	args := []interface{}{classID, studentID}
	if update.BehaviorNotes != nil {
		args = append(args, *update.BehaviorNotes)
		sets = append(sets, fmt.Sprintf("behavior_notes = $%d", len(args)))
	}
	if update.Participation != nil {
		args = append(args, *update.Participation)
		sets = append(sets, fmt.Sprintf("participation = $%d", len(args)))
	}
	if update.Grades != nil {
		args = append(args, update.Grades)
		sets = append(sets, fmt.Sprintf("grades = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(`UPDATE enrollments SET %s WHERE class_id = $1 AND student_id = $2`, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the (class, student) enrollment only.
func (r *EnrollmentRepository) Delete(ctx context.Context, classID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res)
}
