package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type calendarRepository interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
	ListByClass(ctx context.Context, classID string) ([]models.CalendarEvent, error)
}

// CalendarEventInput describes an event to place on the teacher's calendar.
type CalendarEventInput struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Date           time.Time `json:"date" validate:"required"`
	Time           *string   `json:"time" validate:"omitempty,max=16"`
	Type           string    `json:"type" validate:"required,max=60"`
	Subject        *string   `json:"subject"`
	GradeLevel     *string   `json:"grade_level"`
	RelatedClassID *string   `json:"related_class_id"`
	Notes          *string   `json:"notes"`
}

// CalendarService manages calendar events.
type CalendarService struct {
	repo      calendarRepository
	classes   classReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarRepository, classes classReader, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// CreateEvent stores the event and returns its id.
func (s *CalendarService) CreateEvent(ctx context.Context, input CalendarEventInput) (string, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validator.Struct(input); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar event payload")
	}
	event := &models.CalendarEvent{
		Title:          input.Title,
		EventDate:      input.Date,
		EventTime:      input.Time,
		EventType:      input.Type,
		Subject:        input.Subject,
		GradeLevel:     input.GradeLevel,
		RelatedClassID: input.RelatedClassID,
		Notes:          input.Notes,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar event")
	}
	s.logger.Debug("calendar event created", zap.String("event_id", event.ID), zap.String("type", event.EventType))
	return event.ID, nil
}

// ListForClass returns the events linked to a class.
func (s *CalendarService) ListForClass(ctx context.Context, classID string) ([]models.CalendarEvent, error) {
	class, err := findOwnedClass(ctx, s.classes, classID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar events")
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	return events, nil
}
