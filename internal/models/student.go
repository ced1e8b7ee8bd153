package models

import "time"

// StudentProfile is the durable identity of one physical student, shared by
// every enrollment across sibling classes.
type StudentProfile struct {
	ID               string     `db:"id" json:"id"`
	OwnerID          string     `db:"owner_id" json:"owner_id"`
	Name             string     `db:"name" json:"name"`
	RegistrationCode *string    `db:"registration_code" json:"registration_code,omitempty"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	LearningStyle    string     `db:"learning_style" json:"learning_style"`
	ParentContact    string     `db:"parent_contact" json:"parent_contact"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// EnrolledStudent is the class-side view of a student: the profile plus the
// subject-scoped enrollment data.
type EnrolledStudent struct {
	StudentProfile
	EnrollmentID  string        `db:"enrollment_id" json:"enrollment_id"`
	ClassID       string        `db:"class_id" json:"class_id"`
	BehaviorNotes string        `db:"behavior_notes" json:"behavior_notes"`
	Participation int           `db:"participation" json:"participation"`
	Grades        StudentGrades `db:"grades" json:"grades"`
}

