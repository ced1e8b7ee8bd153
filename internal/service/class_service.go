package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/pkg/cache"
	"github.com/noah-isme/classroom-sync-api/pkg/database"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type classRepository interface {
	classReader
	Create(ctx context.Context, class *models.ClassRoom) error
	Update(ctx context.Context, id string, update models.ClassUpdate) error
	Delete(ctx context.Context, id string) error
}

// CreateClassRequest describes a new class.
type CreateClassRequest struct {
	Name       string  `json:"name" validate:"required,max=120"`
	GradeLevel string  `json:"grade_level" validate:"max=60"`
	Subject    *string `json:"subject" validate:"omitempty,max=120"`
	Color      string  `json:"color" validate:"max=32"`
}

// UpdateClassRequest replaces the descriptive fields of a class.
type UpdateClassRequest struct {
	Name       string  `json:"name" validate:"required,max=120"`
	GradeLevel string  `json:"grade_level" validate:"max=60"`
	Subject    *string `json:"subject" validate:"omitempty,max=120"`
	Color      string  `json:"color" validate:"max=32"`
}

// AnnouncementRequest posts a notice to a class.
type AnnouncementRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// RosterDriftEntry names a student missing from part of a sibling set.
type RosterDriftEntry struct {
	StudentID   string   `json:"student_id"`
	StudentName string   `json:"student_name"`
	EnrolledIn  []string `json:"enrolled_in"`
	MissingFrom []string `json:"missing_from"`
}

// RosterDriftReport lists students not enrolled in every class of a sibling set.
type RosterDriftReport struct {
	ClassIDs []string           `json:"class_ids"`
	Drift    []RosterDriftEntry `json:"drift"`
}

// ClassService manages class records and their read-side views.
type ClassService struct {
	classes   classRepository
	roster    rosterReader
	cache     *CacheService
	reportTTL time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs ClassService.
func NewClassService(classes classRepository, roster rosterReader, cacheSvc *CacheService, reportTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, roster: roster, cache: cacheSvc, reportTTL: reportTTL, validator: validate, logger: logger, now: time.Now}
}

// List returns an owner's classes with their students.
func (s *ClassService) List(ctx context.Context, ownerID string) ([]models.ClassRoom, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id required")
	}
	return loadOwnerClasses(ctx, s.classes, s.roster, ownerID)
}

// Get returns a class with its students.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassRoom, error) {
	return loadClass(ctx, s.classes, s.roster, id)
}

// Create registers a class. A class sharing its name with another class of
// the owner joins that class's sibling set.
func (s *ClassService) Create(ctx context.Context, ownerID string, req CreateClassRequest) (*models.ClassRoom, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = normaliseSubject(req.Subject)
	if strings.TrimSpace(ownerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.ClassRoom{
		OwnerID:       ownerID,
		Name:          req.Name,
		GradeLevel:    strings.TrimSpace(req.GradeLevel),
		Subject:       req.Subject,
		Color:         req.Color,
		Announcements: models.Announcements{},
		Assessments:   models.ClassAssessments{},
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	class.Students = []models.EnrolledStudent{}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", class.Name))
	return class, nil
}

// Update rewrites the descriptive fields of a class. Renaming moves the class
// into the sibling set of its new name.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.ClassRoom, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = normaliseSubject(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := loadClass(ctx, s.classes, s.roster, id)
	if err != nil {
		return nil, err
	}
	class.Name = req.Name
	class.GradeLevel = strings.TrimSpace(req.GradeLevel)
	class.Subject = req.Subject
	class.Color = req.Color
	if err := s.classes.Update(ctx, id, classUpdateFrom(*class)); err != nil {
		return nil, mapRowError(err, "class not found", "failed to update class")
	}
	s.cache.Forget(ctx, cache.OwnerClassResourcesKey(class.OwnerID, class.ID))
	return class, nil
}

// Delete removes an empty class. Classes that still hold enrollments or
// assessments are rejected with a conflict rather than cascading.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	class, err := loadClass(ctx, s.classes, s.roster, id)
	if err != nil {
		return err
	}
	if len(class.Students) > 0 || len(class.Assessments) > 0 {
		msg := fmt.Sprintf("class has %d enrollments and %d assessments", len(class.Students), len(class.Assessments))
		return appErrors.Clone(appErrors.ErrConflict, msg)
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "class has dependent records")
		}
		return mapRowError(err, "class not found", "failed to delete class")
	}
	s.cache.Forget(ctx, cache.ClassReportKey(id), cache.OwnerClassResourcesKey(class.OwnerID, id))
	return nil
}

// Siblings returns the other subject classes of the same physical roster.
func (s *ClassService) Siblings(ctx context.Context, id string) ([]models.ClassRoom, error) {
	_, siblings, err := loadClassWithSiblings(ctx, s.classes, s.roster, id)
	if err != nil {
		return nil, err
	}
	return siblings, nil
}

// PostAnnouncement puts a notice at the head of the class announcements.
func (s *ClassService) PostAnnouncement(ctx context.Context, id string, req AnnouncementRequest) (*models.ClassRoom, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	class, err := loadClass(ctx, s.classes, s.roster, id)
	if err != nil {
		return nil, err
	}
	announcement := models.Announcement{ID: uuid.NewString(), Text: req.Text, CreatedAt: s.now().UTC()}
	class.Announcements = append(models.Announcements{announcement}, class.Announcements...)
	if err := s.classes.Update(ctx, id, classUpdateFrom(*class)); err != nil {
		return nil, mapRowError(err, "class not found", "failed to post announcement")
	}
	return class, nil
}

// RosterDrift reports students enrolled in some, but not all, classes of
// the sibling set. Unenrollment does not propagate, so drift is expected
// after removeStudent and is surfaced here for manual reconciliation.
func (s *ClassService) RosterDrift(ctx context.Context, id string) (*RosterDriftReport, error) {
	class, siblings, err := loadClassWithSiblings(ctx, s.classes, s.roster, id)
	if err != nil {
		return nil, err
	}
	set := append([]models.ClassRoom{*class}, siblings...)
	report := &RosterDriftReport{ClassIDs: make([]string, 0, len(set)), Drift: []RosterDriftEntry{}}

	names := map[string]string{}
	enrolled := map[string]map[string]bool{}
	for _, c := range set {
		report.ClassIDs = append(report.ClassIDs, c.ID)
		for _, student := range c.Students {
			names[student.ID] = student.Name
			if enrolled[student.ID] == nil {
				enrolled[student.ID] = map[string]bool{}
			}
			enrolled[student.ID][c.ID] = true
		}
	}
	for studentID, in := range enrolled {
		if len(in) == len(set) {
			continue
		}
		entry := RosterDriftEntry{StudentID: studentID, StudentName: names[studentID]}
		for _, c := range set {
			if in[c.ID] {
				entry.EnrolledIn = append(entry.EnrolledIn, c.ID)
			} else {
				entry.MissingFrom = append(entry.MissingFrom, c.ID)
			}
		}
		report.Drift = append(report.Drift, entry)
	}
	sort.Slice(report.Drift, func(i, j int) bool {
		if report.Drift[i].StudentName == report.Drift[j].StudentName {
			return report.Drift[i].StudentID < report.Drift[j].StudentID
		}
		return report.Drift[i].StudentName < report.Drift[j].StudentName
	})
	return report, nil
}

// Report returns per-student and pooled class averages, served from cache when possible.
func (s *ClassService) Report(ctx context.Context, id string) (*models.ClassGradeReport, error) {
	class, err := findOwnedClass(ctx, s.classes, id)
	if err != nil {
		return nil, err
	}
	key := cache.ClassReportKey(class.ID)
	var cached models.ClassGradeReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	students, err := s.roster.ListByClassIDs(ctx, []string{class.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	list := []models.ClassRoom{*class}
	attachStudents(list, students)
	report := BuildClassReport(list[0], s.now().UTC())
	_ = s.cache.Set(ctx, key, report, s.reportTTL)
	return &report, nil
}

func normaliseSubject(subject *string) *string {
	if subject == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*subject)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
