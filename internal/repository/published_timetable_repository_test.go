package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishedTimetableRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPublishedTimetableRepository(db)

	query := regexp.QuoteMeta("SELECT department_id, draft_id, version, published_at, published_by FROM published_timetables WHERE department_id = $1")
	mock.ExpectQuery(query).WithArgs("cse").
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "draft_id", "version", "published_at", "published_by"}).
			AddRow("cse", "d1", 3, time.Now(), "hod"))
	mock.ExpectQuery(query).WithArgs("ece").WillReturnError(sql.ErrNoRows)

	pointer, err := repo.Get(context.Background(), nil, "cse")
	require.NoError(t, err)
	assert.Equal(t, int64(3), pointer.Version)
	assert.Equal(t, "d1", pointer.DraftID)

	_, err = repo.Get(context.Background(), nil, "ece")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishedTimetableRepositorySwapFirstPublish(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPublishedTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO published_timetables")).
		WithArgs("cse", "d1", sqlmock.AnyArg(), "hod").
		WillReturnResult(sqlmock.NewResult(0, 1))

	version, err := repo.Swap(context.Background(), nil, "cse", "d1", "hod", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishedTimetableRepositorySwapCompareAndSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPublishedTimetableRepository(db)

	query := regexp.QuoteMeta("UPDATE published_timetables SET draft_id = $1, version = version + 1")
	mock.ExpectExec(query).
		WithArgs("d2", sqlmock.AnyArg(), "hod", "cse", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("d3", sqlmock.AnyArg(), "hod", "cse", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	version, err := repo.Swap(context.Background(), nil, "cse", "d2", "hod", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)

	_, err = repo.Swap(context.Background(), nil, "cse", "d3", "hod", 4)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishedTimetableRepositorySwapLostFirstPublishRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPublishedTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (department_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Swap(context.Background(), nil, "cse", "d1", "hod", 0)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
