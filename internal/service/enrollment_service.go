package service

import (
	"context"
	"fmt"
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

const (
	registrationCodeAttempts = 3

	opAddStudent     = "add_student"
	opEnrollExisting = "enroll_existing"
)

type enrollmentRepository interface {
	rosterReader
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, classID, studentID string, update models.EnrollmentUpdate) error
	Delete(ctx context.Context, classID, studentID string) error
}

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
}

// AddStudentRequest carries the profile fields of a new student.
type AddStudentRequest struct {
	Name             string     `json:"name" validate:"required,max=120"`
	RegistrationCode *string    `json:"registration_code" validate:"omitempty,max=64"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	LearningStyle    string     `json:"learning_style" validate:"max=60"`
	ParentContact    string     `json:"parent_contact" validate:"max=255"`
}

// AddStudentResult reports the profile and how far enrollment propagated.
type AddStudentResult struct {
	Profile    models.StudentProfile `json:"profile"`
	ClassCount int                   `json:"class_count"`
	Outcome    models.FanoutResult   `json:"outcome"`
}

// UpdateEnrollmentRequest edits the subject-scoped fields of one enrollment.
type UpdateEnrollmentRequest struct {
	BehaviorNotes *string `json:"behavior_notes" validate:"omitempty,max=2000"`
	Participation *int    `json:"participation" validate:"omitempty,min=0"`
}

// ManualGradeRequest describes a free-standing grade not tied to an assessment.
type ManualGradeRequest struct {
	Title    string     `json:"title" validate:"required,max=200"`
	Score    float64    `json:"score" validate:"gte=0"`
	MaxScore float64    `json:"max_score" validate:"gt=0"`
	Date     *time.Time `json:"date"`
	Category string     `json:"category" validate:"max=60"`
}

// EnrollmentService keeps one student identity enrolled across a sibling set.
type EnrollmentService struct {
	classes     classReader
	enrollments enrollmentRepository
	students    studentRepository
	cache       *CacheService
	metrics     *MetricsService
	codePrefix  string
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(classes classReader, enrollments enrollmentRepository, students studentRepository, cacheSvc *CacheService, metrics *MetricsService, codePrefix string, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codePrefix == "" {
		codePrefix = "ST"
	}
	return &EnrollmentService{
		classes:     classes,
		enrollments: enrollments,
		students:    students,
		cache:       cacheSvc,
		metrics:     metrics,
		codePrefix:  codePrefix,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// AddStudent creates one profile and enrolls it into the class and then each
// sibling, in that order. A failure part way returns the result so far with
// a *PartialError; earlier enrollments are not rolled back and the caller
// should finish the job with EnrollExisting rather than calling AddStudent again.
func (s *EnrollmentService) AddStudent(ctx context.Context, classID string, req AddStudentRequest) (*AddStudentResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.RegistrationCode != nil {
		code := strings.TrimSpace(*req.RegistrationCode)
		req.RegistrationCode = &code
		if code == "" {
			req.RegistrationCode = nil
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	class, siblings, err := loadClassWithSiblings(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return nil, err
	}

	profile := &models.StudentProfile{
		OwnerID:          class.OwnerID,
		Name:             req.Name,
		RegistrationCode: req.RegistrationCode,
		DateOfBirth:      req.DateOfBirth,
		LearningStyle:    strings.TrimSpace(req.LearningStyle),
		ParentContact:    strings.TrimSpace(req.ParentContact),
	}
	if err := s.createProfile(ctx, profile, req.RegistrationCode == nil); err != nil {
		return nil, err
	}

	targets := append([]models.ClassRoom{*class}, siblings...)
	completed, err := s.enroll(ctx, profile.ID, targets)
	result := &AddStudentResult{
		Profile:    *profile,
		ClassCount: completed,
		Outcome:    models.NewFanoutResult(completed, len(targets)),
	}
	s.metrics.RecordFanout(opAddStudent, result.Outcome)
	if err != nil {
		s.logger.Warn("student enrollment stopped part way",
			zap.String("class_id", class.ID),
			zap.String("student_id", profile.ID),
			zap.Int("completed", completed),
			zap.Int("total", len(targets)),
			zap.Error(err),
		)
		return result, appErrors.NewPartial("enroll student", completed, len(targets), err)
	}
	s.logger.Info("student added", zap.String("class_id", class.ID), zap.String("student_id", profile.ID), zap.Int("class_count", completed))
	return result, nil
}

// EnrollExisting enrolls an existing profile into the class and every
// sibling it is not yet part of. Once the set is complete it writes nothing.
func (s *EnrollmentService) EnrollExisting(ctx context.Context, classID, studentID string) (*AddStudentResult, error) {
	profile, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, mapRowError(err, "student not found", "failed to load student")
	}
	class, siblings, err := loadClassWithSiblings(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return nil, err
	}
	if profile.OwnerID != class.OwnerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	set := append([]models.ClassRoom{*class}, siblings...)
	missing := make([]models.ClassRoom, 0, len(set))
	for i := range set {
		if _, ok := set[i].FindStudent(profile.ID); !ok {
			missing = append(missing, set[i])
		}
	}
	already := len(set) - len(missing)

	completed, err := s.enroll(ctx, profile.ID, missing)
	result := &AddStudentResult{
		Profile:    *profile,
		ClassCount: already + completed,
		Outcome:    models.NewFanoutResult(completed, len(missing)),
	}
	if len(missing) > 0 {
		s.metrics.RecordFanout(opEnrollExisting, result.Outcome)
	}
	if err != nil {
		return result, appErrors.NewPartial("enroll existing student", completed, len(missing), err)
	}
	return result, nil
}

// RemoveStudent deletes the enrollment in this class only. Sibling
// enrollments are left in place; RosterDrift reports the difference.
func (s *EnrollmentService) RemoveStudent(ctx context.Context, classID, studentID string) error {
	class, err := loadClass(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return err
	}
	if _, ok := class.FindStudent(studentID); !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in class")
	}
	if err := s.enrollments.Delete(ctx, classID, studentID); err != nil {
		return mapRowError(err, "student is not enrolled in class", "failed to remove student")
	}
	s.cache.Forget(ctx, cache.ClassReportKey(classID))
	s.logger.Info("student removed", zap.String("class_id", classID), zap.String("student_id", studentID))
	return nil
}

// UpdateEnrollment edits behavior notes or participation for one enrollment.
func (s *EnrollmentService) UpdateEnrollment(ctx context.Context, classID, studentID string, req UpdateEnrollmentRequest) (*models.EnrolledStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if req.BehaviorNotes == nil && req.Participation == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no enrollment fields to update")
	}
	student, err := s.enrolled(ctx, classID, studentID)
	if err != nil {
		return nil, err
	}
	update := models.EnrollmentUpdate{BehaviorNotes: req.BehaviorNotes, Participation: req.Participation}
	if err := s.enrollments.Update(ctx, classID, studentID, update); err != nil {
		return nil, mapRowError(err, "student is not enrolled in class", "failed to update enrollment")
	}
	if req.BehaviorNotes != nil {
		student.BehaviorNotes = *req.BehaviorNotes
	}
	if req.Participation != nil {
		student.Participation = *req.Participation
	}
	return student, nil
}

// AddManualGrade appends a grade with no assessment back-reference.
func (s *EnrollmentService) AddManualGrade(ctx context.Context, classID, studentID string, req ManualGradeRequest) (*models.EnrolledStudent, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	student, err := s.enrolled(ctx, classID, studentID)
	if err != nil {
		return nil, err
	}
	date := s.now().UTC()
	if req.Date != nil {
		date = *req.Date
	}
	grades := append(student.Grades.Clone(), models.StudentGrade{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Score:    req.Score,
		MaxScore: req.MaxScore,
		Date:     date,
		Category: strings.TrimSpace(req.Category),
	})
	if err := s.enrollments.Update(ctx, classID, studentID, models.EnrollmentUpdate{Grades: grades}); err != nil {
		return nil, mapRowError(err, "student is not enrolled in class", "failed to save grade")
	}
	student.Grades = grades
	s.cache.Forget(ctx, cache.ClassReportKey(classID))
	return student, nil
}

func (s *EnrollmentService) enrolled(ctx context.Context, classID, studentID string) (*models.EnrolledStudent, error) {
	class, err := loadClass(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return nil, err
	}
	student, ok := class.FindStudent(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in class")
	}
	return student, nil
}

// enroll creates one enrollment per target in order and stops at the first
// failure, returning how many were written.
func (s *EnrollmentService) enroll(ctx context.Context, studentID string, targets []models.ClassRoom) (int, error) {
	for i, target := range targets {
		enrollment := &models.Enrollment{
			ClassID:   target.ID,
			StudentID: studentID,
			Grades:    models.StudentGrades{},
		}
		if err := s.enrollments.Create(ctx, enrollment); err != nil {
			return i, fmt.Errorf("enroll in class %s: %w", target.ID, err)
		}
		s.cache.Forget(ctx, cache.ClassReportKey(target.ID))
	}
	return len(targets), nil
}

// createProfile persists the profile. Generated registration codes are
// retried on a uniqueness rejection; a supplied code that collides is a conflict.
func (s *EnrollmentService) createProfile(ctx context.Context, profile *models.StudentProfile, generateCode bool) error {
	attempts := 1
	if generateCode {
		attempts = registrationCodeAttempts
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if generateCode {
			code := s.newRegistrationCode()
			profile.RegistrationCode = &code
		}
		err = s.students.Create(ctx, profile)
		if err == nil {
			return nil
		}
		if !database.IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		s.logger.Debug("registration code collision", zap.Int("attempt", attempt+1), zap.Bool("generated", generateCode))
	}
	return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "registration code already in use")
}

func (s *EnrollmentService) newRegistrationCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s", s.codePrefix, raw[:10])
}
