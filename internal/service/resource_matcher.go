package service

import (
	"strings"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

// DefaultGeneralSubject is the subject whose classes see every unlinked resource.
const DefaultGeneralSubject = "general"

// ResourceMatcher decides whether a shared resource shows up inside a class.
type ResourceMatcher struct {
	generalSubject string
}

// NewResourceMatcher constructs a matcher with the given general-subject sentinel.
func NewResourceMatcher(generalSubject string) ResourceMatcher {
	if generalSubject == "" {
		generalSubject = DefaultGeneralSubject
	}
	return ResourceMatcher{generalSubject: generalSubject}
}

// IsVisibleIn applies, in order: the explicit class link (exact, no
// fallback), the general-class short-circuit, then bidirectional substring
// containment between the resource's terms and the class subject or grade.
// Matching is case-sensitive and unnormalised.
func (m ResourceMatcher) IsVisibleIn(resource models.Resource, class models.ClassRoom) bool {
	if resource.ClassID != nil && *resource.ClassID != "" {
		return *resource.ClassID == class.ID
	}
	subject := class.SubjectName()
	if subject == "" || subject == m.generalSubject {
		return true
	}
	for _, term := range resource.MatchTerms() {
		if containsEither(term, subject) || containsEither(term, class.GradeLevel) {
			return true
		}
	}
	return false
}

// Filter returns the resources visible in class, preserving order.
func (m ResourceMatcher) Filter(resources []models.Resource, class models.ClassRoom) []models.Resource {
	visible := make([]models.Resource, 0, len(resources))
	for _, resource := range resources {
		if m.IsVisibleIn(resource, class) {
			visible = append(visible, resource)
		}
	}
	return visible
}

// containsEither is true when either non-empty string contains the other.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
