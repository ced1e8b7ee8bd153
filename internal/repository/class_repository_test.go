package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/pkg/database"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

const classOneID = "0f8e4c1a-6d3b-4a77-9b2e-1c5d8f3a2b10"

var classRowColumns = []string{"id", "owner_id", "name", "grade_level", "subject", "color", "announcements", "assessments", "created_at", "updated_at"}

func TestClassRepositoryFindByIDDecodesJSON(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(classRowColumns).
		AddRow(classOneID, "owner-1", "2A", "2", "Math", "blue",
			[]byte(`[{"id":"an-1","text":"Quiz on Monday","created_at":"2026-01-05T00:00:00Z"}]`),
			[]byte(`[{"id":"as-1","title":"Quiz 1","date":"2026-01-06T00:00:00Z","type":"quiz","max_score":20}]`),
			now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE id = $1")).
		WithArgs(classOneID).
		WillReturnRows(rows)

	class, err := repo.FindByID(context.Background(), classOneID)
	require.NoError(t, err)
	assert.Equal(t, "Math", class.SubjectName())
	require.Len(t, class.Assessments, 1)
	assert.Equal(t, 20.0, class.Assessments[0].MaxScore)
	require.Len(t, class.Announcements, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	missing := "5b0c6a52-9a8e-4d0f-8f36-0f3c2d7b1e44"
	mock.ExpectQuery("FROM classes WHERE id").WithArgs(missing).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), missing)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDMalformedIDSkipsQuery(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	for _, id := range []string{"nope", "", "class-1'; --"} {
		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, sql.ErrNoRows, id)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListByOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(classRowColumns).
		AddRow("c1", "owner-1", "2A", "2", "Math", "", nil, []byte(`[]`), []byte(`[]`), now, now).
		AddRow("c2", "owner-1", "2A", "2", nil, "", nil, nil, nil, now, now)
	mock.ExpectQuery("FROM classes WHERE owner_id = \\$1").WithArgs("owner-1").WillReturnRows(rows)

	classes, err := repo.ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Nil(t, classes[1].Subject)
	assert.Empty(t, classes[1].Assessments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.ClassRoom{OwnerID: "owner-1", Name: "2A"}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.NotNil(t, class.Assessments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET").
		WithArgs("c1", "2A", "2", nil, "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "c1", models.ClassUpdate{Name: "2A", GradeLevel: "2"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteWithDependents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("DELETE FROM classes").WithArgs("c1").WillReturnError(&pq.Error{Code: "23503"})

	err := repo.Delete(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err))
}
