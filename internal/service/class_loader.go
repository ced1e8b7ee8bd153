package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type classReader interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.ClassRoom, error)
	FindByID(ctx context.Context, id string) (*models.ClassRoom, error)
}

type rosterReader interface {
	ListByClassIDs(ctx context.Context, classIDs []string) ([]models.EnrolledStudent, error)
}

type ownerContextKey struct{}

// WithOwner scopes ctx to the teacher on whose behalf the request acts.
// Classes of any other owner are then reported as not found.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFromContext returns the owner set by WithOwner.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerContextKey{}).(string)
	return owner, ok && owner != ""
}

// findOwnedClass fetches a class row and hides it when the context is scoped
// to a different owner. Unscoped contexts (internal callers) see every class.
func findOwnedClass(ctx context.Context, classes classReader, id string) (*models.ClassRoom, error) {
	class, err := classes.FindByID(ctx, id)
	if err != nil {
		return nil, mapRowError(err, "class not found", "failed to load class")
	}
	if owner, scoped := OwnerFromContext(ctx); scoped && class.OwnerID != owner {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return class, nil
}

// loadClass fetches a class together with its enrolled students.
func loadClass(ctx context.Context, classes classReader, roster rosterReader, id string) (*models.ClassRoom, error) {
	class, err := findOwnedClass(ctx, classes, id)
	if err != nil {
		return nil, err
	}
	students, err := roster.ListByClassIDs(ctx, []string{class.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	list := []models.ClassRoom{*class}
	attachStudents(list, students)
	return &list[0], nil
}

// loadOwnerClasses fetches every class of an owner with students attached.
func loadOwnerClasses(ctx context.Context, classes classReader, roster rosterReader, ownerID string) ([]models.ClassRoom, error) {
	list, err := classes.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	ids := make([]string, 0, len(list))
	for _, class := range list {
		ids = append(ids, class.ID)
	}
	students, err := roster.ListByClassIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class rosters")
	}
	attachStudents(list, students)
	return list, nil
}

// loadClassWithSiblings returns the class and its sibling set, both with students.
func loadClassWithSiblings(ctx context.Context, classes classReader, roster rosterReader, id string) (*models.ClassRoom, []models.ClassRoom, error) {
	class, err := loadClass(ctx, classes, roster, id)
	if err != nil {
		return nil, nil, err
	}
	all, err := loadOwnerClasses(ctx, classes, roster, class.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	return class, SiblingsOf(*class, all), nil
}

func attachStudents(classes []models.ClassRoom, students []models.EnrolledStudent) {
	byClass := make(map[string][]models.EnrolledStudent, len(classes))
	for _, student := range students {
		byClass[student.ClassID] = append(byClass[student.ClassID], student)
	}
	for i := range classes {
		classes[i].Students = byClass[classes[i].ID]
		if classes[i].Students == nil {
			classes[i].Students = []models.EnrolledStudent{}
		}
	}
}

// classUpdateFrom captures the current mutable state of a class for a rewrite.
func classUpdateFrom(class models.ClassRoom) models.ClassUpdate {
	return models.ClassUpdate{
		Name:          class.Name,
		GradeLevel:    class.GradeLevel,
		Subject:       class.Subject,
		Color:         class.Color,
		Announcements: class.Announcements,
		Assessments:   class.Assessments,
	}
}

// mapRowError converts a missing-row error into a typed not-found error.
func mapRowError(err error, notFound, failed string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failed)
}
