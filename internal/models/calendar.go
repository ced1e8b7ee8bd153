package models

import "time"

// CalendarEvent represents a teacher's calendar entry. Assessments created
// with calendar sync produce exactly one event for the whole class.
type CalendarEvent struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	EventDate      time.Time `db:"event_date" json:"event_date"`
	EventTime      *string   `db:"event_time" json:"event_time,omitempty"`
	EventType      string    `db:"event_type" json:"event_type"`
	Subject        *string   `db:"subject" json:"subject,omitempty"`
	GradeLevel     *string   `db:"grade_level" json:"grade_level,omitempty"`
	RelatedClassID *string   `db:"related_class_id" json:"related_class_id,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Calendar event types raised by this service.
const (
	CalendarEventTypeAssessment = "assessment"
)
