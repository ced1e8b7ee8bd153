package models

import (
	"database/sql/driver"
	"time"
)

// ClassRoom is one subject-scoped view of a physical group of students.
// Several classes sharing a display name are siblings.
type ClassRoom struct {
	ID            string           `db:"id" json:"id"`
	OwnerID       string           `db:"owner_id" json:"owner_id"`
	Name          string           `db:"name" json:"name"`
	GradeLevel    string           `db:"grade_level" json:"grade_level"`
	Subject       *string          `db:"subject" json:"subject,omitempty"`
	Color         string           `db:"color" json:"color"`
	Announcements Announcements    `db:"announcements" json:"announcements"`
	Assessments   ClassAssessments `db:"assessments" json:"assessments"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`

	Students []EnrolledStudent `db:"-" json:"students"`
}

// SubjectName returns the subject or an empty string when unset.
func (c *ClassRoom) SubjectName() string {
	if c == nil || c.Subject == nil {
		return ""
	}
	return *c.Subject
}

// FindAssessment returns the assessment with the given id.
func (c *ClassRoom) FindAssessment(id string) (*ClassAssessment, bool) {
	for i := range c.Assessments {
		if c.Assessments[i].ID == id {
			return &c.Assessments[i], true
		}
	}
	return nil, false
}

// FindStudent returns the enrolled student view for a profile id.
func (c *ClassRoom) FindStudent(studentID string) (*EnrolledStudent, bool) {
	for i := range c.Students {
		if c.Students[i].ID == studentID {
			return &c.Students[i], true
		}
	}
	return nil, false
}

// Announcement is a short notice posted to a class.
type Announcement struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Announcements is stored as a JSONB array, newest first.
type Announcements []Announcement

// Value implements driver.Valuer.
func (a Announcements) Value() (driver.Value, error) {
	return jsonValue(a, "[]")
}

// Scan implements sql.Scanner.
func (a *Announcements) Scan(value interface{}) error {
	*a = nil
	return scanJSON(value, a, "announcements")
}

// ClassAssessment is a class-wide gradable event. Grading it materialises
// StudentGrade entries carrying its ID on each enrollment.
type ClassAssessment struct {
	ID                     string    `json:"id"`
	Title                  string    `json:"title"`
	Date                   time.Time `json:"date"`
	Type                   string    `json:"type"`
	MaxScore               float64   `json:"max_score"`
	RelatedCalendarEventID *string   `json:"related_calendar_event_id,omitempty"`
}

// ClassAssessments is stored as a JSONB array on the class row.
type ClassAssessments []ClassAssessment

// Value implements driver.Valuer.
func (a ClassAssessments) Value() (driver.Value, error) {
	return jsonValue(a, "[]")
}

// Scan implements sql.Scanner.
func (a *ClassAssessments) Scan(value interface{}) error {
	*a = nil
	return scanJSON(value, a, "class assessments")
}

// Without returns a copy of the list minus the assessment with id.
func (a ClassAssessments) Without(id string) ClassAssessments {
	out := make(ClassAssessments, 0, len(a))
	for _, item := range a {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// ClassUpdate carries the mutable columns of a class row.
type ClassUpdate struct {
	Name          string
	GradeLevel    string
	Subject       *string
	Color         string
	Announcements Announcements
	Assessments   ClassAssessments
}
