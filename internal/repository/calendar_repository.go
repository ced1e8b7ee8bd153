package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

// CalendarRepository persists calendar events.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create inserts a calendar event.
func (r *CalendarRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO calendar_events (id, title, event_date, event_time, event_type, subject, grade_level, related_class_id, notes, created_at)
VALUES (:id, :title, :event_date, :event_time, :event_type, :subject, :grade_level, :related_class_id, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// ListByClass returns the events linked to a class, soonest first.
func (r *CalendarRepository) ListByClass(ctx context.Context, classID string) ([]models.CalendarEvent, error) {
	const query = `SELECT id, title, event_date, event_time, event_type, subject, grade_level, related_class_id, notes, created_at
FROM calendar_events WHERE related_class_id = $1 ORDER BY event_date ASC`
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, classID); err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}
