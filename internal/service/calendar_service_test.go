package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type calendarRepoStub struct {
	events    []models.CalendarEvent
	createErr error
}

func (r *calendarRepoStub) Create(ctx context.Context, event *models.CalendarEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	event.ID = "evt-1"
	r.events = append(r.events, *event)
	return nil
}

func (r *calendarRepoStub) ListByClass(ctx context.Context, classID string) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	for _, e := range r.events {
		if e.RelatedClassID != nil && *e.RelatedClassID == classID {
			out = append(out, e)
		}
	}
	return out, nil
}

func calendarClasses(t *testing.T) *memClassRepo {
	t.Helper()
	classes := &memClassRepo{db: newMemDB()}
	for _, c := range []models.ClassRoom{{ID: "class-1", OwnerID: "owner-1", Name: "2A"}, {ID: "class-2", OwnerID: "owner-1", Name: "2B"}, {ID: "class-9", OwnerID: "owner-2", Name: "2A"}} {
		c := c
		require.NoError(t, classes.Create(context.Background(), &c))
	}
	return classes
}

func TestCalendarServiceCreateEvent(t *testing.T) {
	repo := &calendarRepoStub{}
	svc := NewCalendarService(repo, calendarClasses(t), nil, nil)
	classID := "class-1"

	id, err := svc.CreateEvent(context.Background(), CalendarEventInput{Title: "Quiz", Date: quizDate, Type: models.CalendarEventTypeAssessment, RelatedClassID: &classID})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)

	events, err := svc.ListForClass(context.Background(), classID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Quiz", events[0].Title)

	events, err = svc.ListForClass(context.Background(), "class-2")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	_, err = svc.ListForClass(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCalendarServiceListHidesOtherOwnersClasses(t *testing.T) {
	svc := NewCalendarService(&calendarRepoStub{}, calendarClasses(t), nil, nil)

	_, err := svc.ListForClass(WithOwner(context.Background(), "owner-1"), "class-9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	events, err := svc.ListForClass(WithOwner(context.Background(), "owner-2"), "class-9")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCalendarServiceCreateEventErrors(t *testing.T) {
	repo := &calendarRepoStub{}
	svc := NewCalendarService(repo, nil, nil, nil)

	_, err := svc.CreateEvent(context.Background(), CalendarEventInput{Date: quizDate, Type: "assessment"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo.createErr = errors.New("db down")
	_, err = svc.CreateEvent(context.Background(), CalendarEventInput{Title: "Quiz", Date: quizDate, Type: "assessment"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
