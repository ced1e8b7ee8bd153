package models

import (
	"time"

	"github.com/lib/pq"
)

// ResourceType enumerates shared instructional resources.
type ResourceType string

const (
	ResourceTypeWorksheet      ResourceType = "worksheet"
	ResourceTypeLessonPlan     ResourceType = "lesson_plan"
	ResourceTypeCurriculumUnit ResourceType = "curriculum_unit"
)

// Resource is a shared instructional resource. It is either explicitly linked
// to one class through ClassID or associated by its subject/grade text.
type Resource struct {
	ID         string         `db:"id" json:"id"`
	OwnerID    string         `db:"owner_id" json:"owner_id"`
	Title      string         `db:"title" json:"title"`
	Type       ResourceType   `db:"type" json:"type"`
	ClassID    *string        `db:"class_id" json:"class_id,omitempty"`
	Tags       pq.StringArray `db:"tags" json:"tags"`
	Subject    string         `db:"subject" json:"subject"`
	GradeLevel string         `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// MatchTerms returns the text used for fuzzy association: tags plus the
// subject and grade metadata, skipping blanks.
func (r Resource) MatchTerms() []string {
	terms := make([]string, 0, len(r.Tags)+2)
	for _, tag := range r.Tags {
		if tag != "" {
			terms = append(terms, tag)
		}
	}
	if r.Subject != "" {
		terms = append(terms, r.Subject)
	}
	if r.GradeLevel != "" {
		terms = append(terms, r.GradeLevel)
	}
	return terms
}
