package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type schedulerStub struct {
	calls  int
	inputs []CalendarEventInput
	err    error
}

func (s *schedulerStub) CreateEvent(ctx context.Context, input CalendarEventInput) (string, error) {
	s.calls++
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("event-%d", s.calls), nil
}

var quizDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func (f *rosterFixture) mustAssessment(t *testing.T, classID string) *models.ClassAssessment {
	t.Helper()
	assessment, err := f.assessments.Create(context.Background(), classID, CreateAssessmentRequest{Title: "Quiz 1", Date: quizDate, Type: "quiz", MaxScore: 20})
	require.NoError(t, err)
	return assessment
}

func TestCreateAssessmentLinksOneCalendarEvent(t *testing.T) {
	scheduler := &schedulerStub{}
	f := newRosterFixture(scheduler)
	class := f.mustClass("2A", "Math")
	f.mustStudent(class.ID, "Ali")
	f.mustStudent(class.ID, "Sara")

	assessment, err := f.assessments.Create(context.Background(), class.ID, CreateAssessmentRequest{Title: "Midterm", Date: quizDate, Type: "exam", MaxScore: 100, SyncCalendar: true})
	require.NoError(t, err)

	assert.Equal(t, 1, scheduler.calls)
	require.NotNil(t, assessment.RelatedCalendarEventID)
	assert.Equal(t, "event-1", *assessment.RelatedCalendarEventID)
	assert.Equal(t, models.CalendarEventTypeAssessment, scheduler.inputs[0].Type)
	assert.Equal(t, class.ID, *scheduler.inputs[0].RelatedClassID)

	stored, err := f.classes.Get(context.Background(), class.ID)
	require.NoError(t, err)
	require.Len(t, stored.Assessments, 1)
	assert.Equal(t, assessment.ID, stored.Assessments[0].ID)
}

func TestCreateAssessmentSurvivesCalendarFailure(t *testing.T) {
	scheduler := &schedulerStub{err: errors.New("calendar down")}
	f := newRosterFixture(scheduler)
	class := f.mustClass("2A", "Math")

	assessment, err := f.assessments.Create(context.Background(), class.ID, CreateAssessmentRequest{Title: "Midterm", Date: quizDate, MaxScore: 100, SyncCalendar: true})
	require.NoError(t, err)
	assert.Nil(t, assessment.RelatedCalendarEventID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.calendarFailed))

	stored, err := f.classes.Get(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Assessments, 1)
}

func TestCreateAssessmentLogsOrphanedEventWhenSaveFails(t *testing.T) {
	scheduler := &schedulerStub{}
	f := newRosterFixture(scheduler)
	core, logs := observer.New(zap.WarnLevel)
	f.assessments = NewAssessmentService(f.classRepo, f.enrollRepo, scheduler, nil, f.metrics, AssessmentServiceConfig{Concurrency: 4, CalendarSync: true}, nil, zap.New(core))
	class := f.mustClass("2A", "Math")
	f.classRepo.updateErr = errors.New("connection reset")

	_, err := f.assessments.Create(context.Background(), class.ID, CreateAssessmentRequest{Title: "Midterm", Date: quizDate, Type: "exam", MaxScore: 100, SyncCalendar: true})
	require.Error(t, err)
	assert.Equal(t, 1, scheduler.calls)

	orphaned := logs.FilterMessage("calendar event orphaned by failed assessment save").All()
	require.Len(t, orphaned, 1)
	assert.Equal(t, "event-1", orphaned[0].ContextMap()["event_id"])
	assert.Equal(t, class.ID, orphaned[0].ContextMap()["class_id"])
}

func TestCreateAssessmentWithoutSyncSkipsCalendar(t *testing.T) {
	scheduler := &schedulerStub{}
	f := newRosterFixture(scheduler)
	class := f.mustClass("2A", "Math")

	_, err := f.assessments.Create(context.Background(), class.ID, CreateAssessmentRequest{Title: "Quiz", Date: quizDate, MaxScore: 10})
	require.NoError(t, err)
	assert.Zero(t, scheduler.calls)
}

func TestCreateAssessmentValidation(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")

	_, err := f.assessments.Create(context.Background(), class.ID, CreateAssessmentRequest{Title: " ", Date: quizDate, MaxScore: 10})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = f.assessments.Create(context.Background(), class.ID, CreateAssessmentRequest{Title: "Quiz", Date: quizDate})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Zero(t, f.classRepo.updates)
}

func TestGradeAssessmentUpsertsInsteadOfAppending(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")
	_, err := f.enrollment.AddManualGrade(context.Background(), class.ID, ali.ID, ManualGradeRequest{Title: "Homework", Score: 5, MaxScore: 10})
	require.NoError(t, err)
	assessment := f.mustAssessment(t, class.ID)

	_, err = f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{ali.ID: "12"}})
	require.NoError(t, err)
	updated, err := f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{ali.ID: "18"}})
	require.NoError(t, err)

	grades := f.db.gradesOf(class.ID, ali.ID)
	require.Len(t, grades, 2)
	assert.Equal(t, "Homework", grades[0].Title)
	i := grades.IndexOfAssessment(assessment.ID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, 18.0, grades[i].Score)
	assert.Equal(t, 20.0, grades[i].MaxScore)
	assert.Equal(t, "quiz", grades[i].Category)
	assert.True(t, grades[i].Date.Equal(quizDate))

	student, ok := updated.FindStudent(ali.ID)
	require.True(t, ok)
	assert.Equal(t, grades, student.Grades)
}

func TestGradeAssessmentSkipsBlankAndNonNumericScores(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")
	sara := f.mustStudent(class.ID, "Sara")
	omar := f.mustStudent(class.ID, "Omar")
	assessment := f.mustAssessment(t, class.ID)

	_, err := f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{
		ali.ID:  "15",
		sara.ID: "",
		omar.ID: "absent",
	}})
	require.NoError(t, err)

	assert.Len(t, f.db.gradesOf(class.ID, ali.ID), 1)
	assert.Empty(t, f.db.gradesOf(class.ID, sara.ID))
	assert.Empty(t, f.db.gradesOf(class.ID, omar.ID))
	assert.Equal(t, 1, f.enrollRepo.updates)
}

func TestGradeAssessmentUnknownStudentWritesNothing(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")
	assessment := f.mustAssessment(t, class.ID)

	_, err := f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{
		ali.ID:     "10",
		"stranger": "10",
	}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Zero(t, f.enrollRepo.updates)

	_, err = f.assessments.Grade(context.Background(), class.ID, "missing", GradeAssessmentRequest{Scores: map[string]RawScore{ali.ID: "10"}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGradeAssessmentBlankScoreForUnknownStudentIsSkipped(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")
	assessment := f.mustAssessment(t, class.ID)

	_, err := f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{
		ali.ID:      "14",
		"left-2024": "",
		"moved-out": "n/a",
	}})
	require.NoError(t, err)
	assert.Len(t, f.db.gradesOf(class.ID, ali.ID), 1)
	assert.Equal(t, 1, f.enrollRepo.updates)
}

func TestGradeAssessmentPartialFailureKeepsLandedWrites(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")
	sara := f.mustStudent(class.ID, "Sara")
	omar := f.mustStudent(class.ID, "Omar")
	assessment := f.mustAssessment(t, class.ID)
	f.enrollRepo.failUpdate[sara.ID] = errors.New("write failed")

	updated, err := f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{
		ali.ID:  "10",
		sara.ID: "11",
		omar.ID: "12",
	}})
	require.Error(t, err)
	var partial *appErrors.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 2, partial.Completed)
	assert.Equal(t, 3, partial.Total)

	assert.Len(t, f.db.gradesOf(class.ID, ali.ID), 1)
	assert.Empty(t, f.db.gradesOf(class.ID, sara.ID))
	assert.Len(t, f.db.gradesOf(class.ID, omar.ID), 1)

	view, ok := updated.FindStudent(sara.ID)
	require.True(t, ok)
	assert.Empty(t, view.Grades)
}

// Two sibling classes share one roster of 30 students; 2 of them are graded
// on a Math assessment that is then deleted.
func TestDeleteAssessmentScenario(t *testing.T) {
	f := newRosterFixture(nil)
	math := f.mustClass("2A", "Math")
	science := f.mustClass("2A", "Science")

	ali := f.mustStudent(math.ID, "Ali")
	require.Len(t, f.db.enrollmentsFor(ali.ID), 2)
	students := []models.StudentProfile{ali}
	for i := 1; i < 30; i++ {
		students = append(students, f.mustStudent(math.ID, fmt.Sprintf("Student %02d", i)))
	}

	assessment := f.mustAssessment(t, math.ID)
	_, err := f.assessments.Grade(context.Background(), math.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{
		students[0].ID: "17",
		students[1].ID: "9",
	}})
	require.NoError(t, err)
	scienceQuiz := f.mustAssessment(t, science.ID)
	_, err = f.assessments.Grade(context.Background(), science.ID, scienceQuiz.ID, GradeAssessmentRequest{Scores: map[string]RawScore{students[0].ID: "20"}})
	require.NoError(t, err)

	before := f.enrollRepo.updates
	result, err := f.assessments.Delete(context.Background(), math.ID, assessment.ID)
	require.NoError(t, err)
	assert.True(t, result.Removed)
	assert.Equal(t, models.FanoutResult{Status: models.FanoutApplied, Completed: 2, Total: 2}, result.Outcome)
	assert.Equal(t, before+2, f.enrollRepo.updates)

	stored, err := f.classes.Get(context.Background(), math.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Assessments)
	for _, student := range stored.Students {
		assert.Empty(t, student.Grades, student.Name)
	}
	assert.Len(t, f.db.gradesOf(science.ID, students[0].ID), 1)

	// Deleting again is a no-op.
	again, err := f.assessments.Delete(context.Background(), math.ID, assessment.ID)
	require.NoError(t, err)
	assert.False(t, again.Removed)
	assert.Equal(t, 0, again.Outcome.Total)
	assert.Equal(t, before+2, f.enrollRepo.updates)
}

func TestDeleteAssessmentRetryFinishesInterruptedCleanup(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")
	sara := f.mustStudent(class.ID, "Sara")
	assessment := f.mustAssessment(t, class.ID)
	_, err := f.assessments.Grade(context.Background(), class.ID, assessment.ID, GradeAssessmentRequest{Scores: map[string]RawScore{ali.ID: "10", sara.ID: "12"}})
	require.NoError(t, err)

	f.enrollRepo.failUpdate[sara.ID] = errors.New("write failed")
	result, err := f.assessments.Delete(context.Background(), class.ID, assessment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPartialPropagation)
	assert.Equal(t, models.FanoutPartial, result.Outcome.Status)
	assert.Empty(t, f.db.gradesOf(class.ID, ali.ID))
	assert.Len(t, f.db.gradesOf(class.ID, sara.ID), 1)

	delete(f.enrollRepo.failUpdate, sara.ID)
	retry, err := f.assessments.Delete(context.Background(), class.ID, assessment.ID)
	require.NoError(t, err)
	assert.False(t, retry.Removed)
	assert.Equal(t, 1, retry.Outcome.Completed)
	assert.Empty(t, f.db.gradesOf(class.ID, sara.ID))
}

func TestRawScoreUnmarshal(t *testing.T) {
	var payload GradeAssessmentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"scores":{"a":85,"b":"90.5","c":null,"d":"","e":"NaN"}}`), &payload))

	v, ok := payload.Scores["a"].Value()
	assert.True(t, ok)
	assert.Equal(t, 85.0, v)
	v, ok = payload.Scores["b"].Value()
	assert.True(t, ok)
	assert.Equal(t, 90.5, v)
	for _, key := range []string{"c", "d", "e"} {
		_, ok := payload.Scores[key].Value()
		assert.False(t, ok, key)
	}
}
