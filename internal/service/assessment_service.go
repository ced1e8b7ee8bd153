package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/pkg/cache"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

const (
	defaultGradingConcurrency = 8

	opGradeAssessment  = "grade_assessment"
	opDeleteAssessment = "delete_assessment"
)

type eventScheduler interface {
	CreateEvent(ctx context.Context, input CalendarEventInput) (string, error)
}

// RawScore is a score as typed by the teacher. It accepts a JSON number,
// string or null; anything that does not parse as a finite number is skipped
// when grading.
type RawScore string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawScore) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	switch {
	case text == "null":
		*r = ""
	case strings.HasPrefix(text, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawScore(s)
	default:
		*r = RawScore(text)
	}
	return nil
}

// Value returns the numeric score and false when it is empty or not a finite number.
func (r RawScore) Value() (float64, bool) {
	text := strings.TrimSpace(string(r))
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// CreateAssessmentRequest describes a class-wide assessment.
type CreateAssessmentRequest struct {
	Title        string    `json:"title" validate:"required,max=200"`
	Date         time.Time `json:"date" validate:"required"`
	Type         string    `json:"type" validate:"max=60"`
	MaxScore     float64   `json:"max_score" validate:"gt=0"`
	SyncCalendar bool      `json:"sync_calendar"`
	EventTime    *string   `json:"event_time" validate:"omitempty,max=16"`
	Notes        *string   `json:"notes" validate:"omitempty,max=2000"`
}

// GradeAssessmentRequest maps student ids to raw scores.
type GradeAssessmentRequest struct {
	Scores map[string]RawScore `json:"scores" validate:"required"`
}

// DeleteAssessmentResult reports the cleanup of an assessment's grades.
type DeleteAssessmentResult struct {
	ClassID      string              `json:"class_id"`
	AssessmentID string              `json:"assessment_id"`
	Removed      bool                `json:"removed"`
	Outcome      models.FanoutResult `json:"outcome"`
}

// AssessmentService creates, grades and deletes class-wide assessments.
type AssessmentService struct {
	classes      classRepository
	enrollments  enrollmentRepository
	calendar     eventScheduler
	cache        *CacheService
	metrics      *MetricsService
	concurrency  int
	calendarSync bool
	validator    *validator.Validate
	logger       *zap.Logger
}

// AssessmentServiceConfig tunes grading and calendar behaviour.
type AssessmentServiceConfig struct {
	Concurrency  int
	CalendarSync bool
}

// NewAssessmentService constructs AssessmentService.
func NewAssessmentService(classes classRepository, enrollments enrollmentRepository, calendar eventScheduler, cacheSvc *CacheService, metrics *MetricsService, cfg AssessmentServiceConfig, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultGradingConcurrency
	}
	return &AssessmentService{
		classes:      classes,
		enrollments:  enrollments,
		calendar:     calendar,
		cache:        cacheSvc,
		metrics:      metrics,
		concurrency:  cfg.Concurrency,
		calendarSync: cfg.CalendarSync,
		validator:    validate,
		logger:       logger,
	}
}

// Create appends a new assessment to the class. When requested, exactly one
// calendar event is created for it; a calendar failure is logged and the
// assessment is stored without a linked event.
func (s *AssessmentService) Create(ctx context.Context, classID string, req CreateAssessmentRequest) (*models.ClassAssessment, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Type = strings.TrimSpace(req.Type)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	class, err := loadClass(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return nil, err
	}

	assessment := models.ClassAssessment{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Date:     req.Date,
		Type:     req.Type,
		MaxScore: req.MaxScore,
	}
	if req.SyncCalendar {
		assessment.RelatedCalendarEventID = s.scheduleEvent(ctx, *class, assessment, req)
	}

	class.Assessments = append(class.Assessments, assessment)
	if err := s.classes.Update(ctx, class.ID, classUpdateFrom(*class)); err != nil {
		if assessment.RelatedCalendarEventID != nil {
			s.logger.Warn("calendar event orphaned by failed assessment save",
				zap.String("class_id", class.ID),
				zap.String("assessment_id", assessment.ID),
				zap.String("event_id", *assessment.RelatedCalendarEventID),
				zap.Error(err),
			)
		}
		return nil, mapRowError(err, "class not found", "failed to save assessment")
	}
	s.logger.Info("assessment created",
		zap.String("class_id", class.ID),
		zap.String("assessment_id", assessment.ID),
		zap.Bool("calendar_linked", assessment.RelatedCalendarEventID != nil),
	)
	return &assessment, nil
}

func (s *AssessmentService) scheduleEvent(ctx context.Context, class models.ClassRoom, assessment models.ClassAssessment, req CreateAssessmentRequest) *string {
	if !s.calendarSync || s.calendar == nil {
		return nil
	}
	var grade *string
	if class.GradeLevel != "" {
		grade = &class.GradeLevel
	}
	classID := class.ID
	eventID, err := s.calendar.CreateEvent(ctx, CalendarEventInput{
		Title:          assessment.Title,
		Date:           assessment.Date,
		Time:           req.EventTime,
		Type:           models.CalendarEventTypeAssessment,
		Subject:        class.Subject,
		GradeLevel:     grade,
		RelatedClassID: &classID,
		Notes:          req.Notes,
	})
	if err != nil {
		s.metrics.RecordCalendarFailure()
		s.logger.Warn("calendar sync failed", zap.String("class_id", class.ID), zap.String("assessment_id", assessment.ID), zap.Error(err))
		return nil
	}
	return &eventID
}

type gradeWrite struct {
	index  int
	grades models.StudentGrades
}

// Grade records scores for an assessment. Each student's grade for the
// assessment is replaced in place when present and appended otherwise.
// Blank or non-numeric scores leave that student ungraded and are dropped
// before student ids are checked against the roster. The per-student
// writes run concurrently and the updated class reflects the writes that landed.
func (s *AssessmentService) Grade(ctx context.Context, classID, assessmentID string, req GradeAssessmentRequest) (*models.ClassRoom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scores payload")
	}
	class, err := loadClass(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return nil, err
	}
	assessment, ok := class.FindAssessment(assessmentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
	}

	scores := make(map[string]float64, len(req.Scores))
	studentIDs := make([]string, 0, len(req.Scores))
	for studentID, raw := range req.Scores {
		score, ok := raw.Value()
		if !ok {
			continue
		}
		scores[studentID] = score
		studentIDs = append(studentIDs, studentID)
	}
	sort.Strings(studentIDs)

	index := make(map[string]int, len(class.Students))
	for i, student := range class.Students {
		index[student.ID] = i
	}
	for _, studentID := range studentIDs {
		if _, ok := index[studentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s is not enrolled in class", studentID))
		}
	}

	writes := make([]gradeWrite, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		i := index[studentID]
		writes = append(writes, gradeWrite{index: i, grades: upsertGrade(class.Students[i].Grades, *assessment, scores[studentID])})
	}
	if len(writes) == 0 {
		return class, nil
	}

	var (
		g         errgroup.Group
		completed atomic.Int64
		landed    = make([]bool, len(writes))
	)
	g.SetLimit(s.concurrency)
	for n, w := range writes {
		studentID := class.Students[w.index].ID
		g.Go(func() error {
			if err := s.enrollments.Update(ctx, class.ID, studentID, models.EnrollmentUpdate{Grades: w.grades}); err != nil {
				return fmt.Errorf("grade student %s: %w", studentID, err)
			}
			landed[n] = true
			completed.Add(1)
			return nil
		})
	}
	err = g.Wait()

	for n, w := range writes {
		if landed[n] {
			class.Students[w.index].Grades = w.grades
		}
	}
	done := int(completed.Load())
	outcome := models.NewFanoutResult(done, len(writes))
	s.metrics.RecordFanout(opGradeAssessment, outcome)
	if done > 0 {
		s.cache.Forget(ctx, cache.ClassReportKey(class.ID))
	}
	if err != nil {
		s.logger.Warn("grading stopped part way",
			zap.String("class_id", class.ID),
			zap.String("assessment_id", assessmentID),
			zap.Int("completed", done),
			zap.Int("total", len(writes)),
			zap.Error(err),
		)
		return class, appErrors.NewPartial("grade assessment", done, len(writes), err)
	}
	return class, nil
}

// upsertGrade returns a copy of grades with the assessment's grade set to score.
func upsertGrade(grades models.StudentGrades, assessment models.ClassAssessment, score float64) models.StudentGrades {
	out := grades.Clone()
	if i := out.IndexOfAssessment(assessment.ID); i >= 0 {
		out[i].Score = score
		return out
	}
	assessmentID := assessment.ID
	return append(out, models.StudentGrade{
		ID:           uuid.NewString(),
		Title:        assessment.Title,
		Score:        score,
		MaxScore:     assessment.MaxScore,
		Date:         assessment.Date,
		Category:     assessment.Type,
		AssessmentID: &assessmentID,
	})
}

// Delete removes the assessment from the class and strips its grades from
// every enrollment, writing only the enrollments that change. The scan runs
// even when the assessment is already gone, so repeating a delete finishes
// an interrupted cleanup and is otherwise a no-op.
func (s *AssessmentService) Delete(ctx context.Context, classID, assessmentID string) (*DeleteAssessmentResult, error) {
	class, err := loadClass(ctx, s.classes, s.enrollments, classID)
	if err != nil {
		return nil, err
	}
	result := &DeleteAssessmentResult{ClassID: class.ID, AssessmentID: assessmentID}

	if _, ok := class.FindAssessment(assessmentID); ok {
		class.Assessments = class.Assessments.Without(assessmentID)
		if err := s.classes.Update(ctx, class.ID, classUpdateFrom(*class)); err != nil {
			return nil, mapRowError(err, "class not found", "failed to remove assessment")
		}
		result.Removed = true
	}

	type pending struct {
		studentID string
		grades    models.StudentGrades
	}
	var work []pending
	for _, student := range class.Students {
		filtered := student.Grades.WithoutAssessment(assessmentID)
		if len(filtered) != len(student.Grades) {
			work = append(work, pending{studentID: student.ID, grades: filtered})
		}
	}

	completed := 0
	var writeErr error
	for _, p := range work {
		if err := s.enrollments.Update(ctx, class.ID, p.studentID, models.EnrollmentUpdate{Grades: p.grades}); err != nil {
			writeErr = fmt.Errorf("strip grades of student %s: %w", p.studentID, err)
			break
		}
		completed++
	}
	result.Outcome = models.NewFanoutResult(completed, len(work))
	if len(work) > 0 {
		s.metrics.RecordFanout(opDeleteAssessment, result.Outcome)
	}
	if completed > 0 {
		s.cache.Forget(ctx, cache.ClassReportKey(class.ID))
	}
	if writeErr != nil {
		s.logger.Warn("assessment cleanup stopped part way",
			zap.String("class_id", class.ID),
			zap.String("assessment_id", assessmentID),
			zap.Int("completed", completed),
			zap.Int("total", len(work)),
			zap.Error(writeErr),
		)
		return result, appErrors.NewPartial("delete assessment", completed, len(work), writeErr)
	}
	s.logger.Info("assessment deleted",
		zap.String("class_id", class.ID),
		zap.String("assessment_id", assessmentID),
		zap.Bool("removed", result.Removed),
		zap.Int("enrollments_cleaned", completed),
	)
	return result, nil
}
