package models

import (
	"database/sql/driver"
	"time"
)

// StudentGrade is a single result on an enrollment. AssessmentID is set when
// the grade materialises a ClassAssessment; manual entries leave it nil.
type StudentGrade struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Score        float64   `json:"score"`
	MaxScore     float64   `json:"max_score"`
	Date         time.Time `json:"date"`
	Category     string    `json:"category"`
	AssessmentID *string   `json:"assessment_id,omitempty"`
}

// Percentage returns score/max*100 and false when the max score is not positive.
func (g StudentGrade) Percentage() (float64, bool) {
	if g.MaxScore <= 0 {
		return 0, false
	}
	return g.Score / g.MaxScore * 100, true
}

// BelongsTo reports whether the grade materialises the given assessment.
func (g StudentGrade) BelongsTo(assessmentID string) bool {
	return g.AssessmentID != nil && *g.AssessmentID == assessmentID
}

// StudentGrades is the unordered grade list stored as JSONB on an enrollment.
type StudentGrades []StudentGrade

// Value implements driver.Valuer.
func (g StudentGrades) Value() (driver.Value, error) {
	return jsonValue(g, "[]")
}

// Scan implements sql.Scanner.
func (g *StudentGrades) Scan(value interface{}) error {
	*g = nil
	return scanJSON(value, g, "student grades")
}

// IndexOfAssessment returns the position of the grade for assessmentID, or -1.
func (g StudentGrades) IndexOfAssessment(assessmentID string) int {
	for i, grade := range g {
		if grade.BelongsTo(assessmentID) {
			return i
		}
	}
	return -1
}

// WithoutAssessment returns a copy of the list minus every grade tied to assessmentID.
func (g StudentGrades) WithoutAssessment(assessmentID string) StudentGrades {
	out := make(StudentGrades, 0, len(g))
	for _, grade := range g {
		if !grade.BelongsTo(assessmentID) {
			out = append(out, grade)
		}
	}
	return out
}

// Clone copies the list so in-place edits do not leak into the caller's view.
func (g StudentGrades) Clone() StudentGrades {
	if g == nil {
		return nil
	}
	out := make(StudentGrades, len(g))
	copy(out, g)
	return out
}

// StudentAverageRow is one line of a class grade report.
type StudentAverageRow struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	GradeCount  int    `json:"grade_count"`
	Average     int    `json:"average"`
}

// ClassGradeReport summarises a class's grades. ClassAverage is pooled over
// every grade entry, not the mean of the student averages.
type ClassGradeReport struct {
	ClassID      string              `json:"class_id"`
	ClassAverage int                 `json:"class_average"`
	GradeCount   int                 `json:"grade_count"`
	Students     []StudentAverageRow `json:"students"`
	GeneratedAt  time.Time           `json:"generated_at"`
}
