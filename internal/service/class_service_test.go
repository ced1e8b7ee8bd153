package service

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-sync-api/pkg/cache"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func TestClassServiceSiblingsShareName(t *testing.T) {
	f := newRosterFixture(nil)
	math := f.mustClass("2A", "Math")
	science := f.mustClass("2A", "Science")
	f.mustClass("2B", "Math")

	assert.NotNil(t, math.Students)
	siblings, err := f.classes.Siblings(context.Background(), math.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, science.ID, siblings[0].ID)
}

func TestClassServiceRenameFollowsName(t *testing.T) {
	f := newRosterFixture(nil)
	science := f.mustClass("2A", "Science")
	math := f.mustClass("2B", "Math")

	_, err := f.classes.Update(context.Background(), math.ID, UpdateClassRequest{Name: "2A", Subject: strPtr("Math")})
	require.NoError(t, err)

	siblings, err := f.classes.Siblings(context.Background(), science.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, math.ID, siblings[0].ID)

	result, err := f.enrollment.AddStudent(context.Background(), math.ID, AddStudentRequest{Name: "Ali"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ClassCount)

	_, err = f.classes.Update(context.Background(), math.ID, UpdateClassRequest{Name: "2A Math", Subject: strPtr("Math")})
	require.NoError(t, err)
	siblings, err = f.classes.Siblings(context.Background(), science.ID)
	require.NoError(t, err)
	assert.Empty(t, siblings)
}

func TestClassServiceCreateValidation(t *testing.T) {
	f := newRosterFixture(nil)

	_, err := f.classes.Create(context.Background(), "owner-1", CreateClassRequest{Name: "  "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = f.classes.Create(context.Background(), "", CreateClassRequest{Name: "2A"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	list, err := f.classes.List(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClassServiceBlankSubjectIsGeneral(t *testing.T) {
	f := newRosterFixture(nil)
	blank := "  "
	class, err := f.classes.Create(context.Background(), "owner-1", CreateClassRequest{Name: "2A", Subject: &blank})
	require.NoError(t, err)
	assert.Nil(t, class.Subject)
}

func TestClassServiceDeleteFailsLoudlyWithDependents(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	ali := f.mustStudent(class.ID, "Ali")

	err := f.classes.Delete(context.Background(), class.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	require.NoError(t, f.enrollment.RemoveStudent(context.Background(), class.ID, ali.ID))
	f.mustAssessment(t, class.ID)
	err = f.classes.Delete(context.Background(), class.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	empty := f.mustClass("3B", "Art")
	require.NoError(t, f.classes.Delete(context.Background(), empty.ID))
	_, err = f.classes.Get(context.Background(), empty.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClassServiceDeleteMapsForeignKeyViolation(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")
	f.classRepo.deleteErr = &pq.Error{Code: "23503"}

	err := f.classes.Delete(context.Background(), class.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestClassServicePostAnnouncementPrepends(t *testing.T) {
	f := newRosterFixture(nil)
	class := f.mustClass("2A", "Math")

	_, err := f.classes.PostAnnouncement(context.Background(), class.ID, AnnouncementRequest{Text: "first"})
	require.NoError(t, err)
	updated, err := f.classes.PostAnnouncement(context.Background(), class.ID, AnnouncementRequest{Text: "second"})
	require.NoError(t, err)

	require.Len(t, updated.Announcements, 2)
	assert.Equal(t, "second", updated.Announcements[0].Text)
	assert.Equal(t, "first", updated.Announcements[1].Text)

	_, err = f.classes.PostAnnouncement(context.Background(), class.ID, AnnouncementRequest{Text: ""})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClassServiceRosterDrift(t *testing.T) {
	f := newRosterFixture(nil)
	math := f.mustClass("2A", "Math")
	science := f.mustClass("2A", "Science")
	ali := f.mustStudent(math.ID, "Ali")
	f.mustStudent(math.ID, "Sara")

	report, err := f.classes.RosterDrift(context.Background(), math.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Drift)

	require.NoError(t, f.enrollment.RemoveStudent(context.Background(), science.ID, ali.ID))
	report, err = f.classes.RosterDrift(context.Background(), science.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{math.ID, science.ID}, report.ClassIDs)
	require.Len(t, report.Drift, 1)
	assert.Equal(t, ali.ID, report.Drift[0].StudentID)
	assert.Equal(t, []string{math.ID}, report.Drift[0].EnrolledIn)
	assert.Equal(t, []string{science.ID}, report.Drift[0].MissingFrom)
}

func TestClassServiceReportUsesPooledAverage(t *testing.T) {
	f := newRosterFixture(nil)
	store := newMemCache()
	f.classes.cache = NewCacheService(store, f.metrics, time.Minute, nil, true)
	f.enrollment.cache = f.classes.cache

	class := f.mustClass("2A", "Math")
	a := f.mustStudent(class.ID, "A")
	b := f.mustStudent(class.ID, "B")
	grade := func(studentID string, score float64) {
		_, err := f.enrollment.AddManualGrade(context.Background(), class.ID, studentID, ManualGradeRequest{Title: "t", Score: score, MaxScore: 100})
		require.NoError(t, err)
	}
	grade(a.ID, 80)
	grade(b.ID, 40)
	grade(b.ID, 60)

	report, err := f.classes.Report(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, report.ClassAverage)
	assert.Equal(t, 3, report.GradeCount)
	assert.True(t, store.has(cache.ClassReportKey(class.ID)))

	// A grade write drops the cached report.
	grade(a.ID, 100)
	assert.False(t, store.has(cache.ClassReportKey(class.ID)))
	report, err = f.classes.Report(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, report.ClassAverage)
}
