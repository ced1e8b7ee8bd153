package models

import "time"

// Enrollment binds one StudentProfile to one ClassRoom. Notes, participation
// and grades belong to the pair and are never shared with sibling classes.
type Enrollment struct {
	ID            string        `db:"id" json:"id"`
	ClassID       string        `db:"class_id" json:"class_id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	BehaviorNotes string        `db:"behavior_notes" json:"behavior_notes"`
	Participation int           `db:"participation" json:"participation"`
	Grades        StudentGrades `db:"grades" json:"grades"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// EnrollmentUpdate lists the enrollment columns to change; nil fields are kept.
type EnrollmentUpdate struct {
	BehaviorNotes *string
	Participation *int
	Grades        StudentGrades
}
