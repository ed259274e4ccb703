package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
)

var draftRowColumns = []string{"id", "department_id", "name", "owner", "status", "meta", "created_at", "updated_at"}

func TestTimetableDraftRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_drafts")).
		WithArgs(sqlmock.AnyArg(), "cse", "Autumn", "admin", string(workflow.StatusDraft), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	draft := &models.TimetableDraft{DepartmentID: "cse", Name: "Autumn", Owner: "admin"}
	require.NoError(t, repo.Create(context.Background(), nil, draft))
	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, workflow.StatusDraft, draft.Status)
	assert.Equal(t, types.JSONText(`{}`), draft.Meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDraftRepositoryCreateRequiresDepartment(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	assert.Error(t, repo.Create(context.Background(), nil, &models.TimetableDraft{Name: "x"}))
	assert.Error(t, repo.Create(context.Background(), nil, nil))
}

func TestTimetableDraftRepositoryInsertEntriesNumbersPositions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	entries := []models.ScheduleEntry{
		{Day: "Monday", Timeslot: "09:00-10:00", BatchID: "b1", SubjectID: "ds", FacultyID: "f1", RoomID: "r101"},
		{Day: "Monday", Timeslot: "10:00-11:00", BatchID: "b1", SubjectID: "ds", FacultyID: "f1", RoomID: "r101"},
	}
	require.NoError(t, repo.InsertEntries(context.Background(), nil, "draft-1", entries))
	assert.Equal(t, 0, entries[0].Position)
	assert.Equal(t, 1, entries[1].Position)
	assert.Equal(t, "draft-1", entries[1].DraftID)
	assert.NotEmpty(t, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, repo.InsertEntries(context.Background(), nil, "draft-1", nil))
}

func TestTimetableDraftRepositoryListByDepartmentWithStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	rows := sqlmock.NewRows(draftRowColumns).
		AddRow("d1", "cse", "Autumn", "admin", "PENDING_APPROVAL", []byte(`{}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_drafts WHERE department_id = $1 AND status = ANY($2) ORDER BY created_at DESC, id")).
		WithArgs("cse", sqlmock.AnyArg()).
		WillReturnRows(rows)

	drafts, err := repo.ListByDepartment(context.Background(), "cse", workflow.StatusPendingApproval)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, workflow.StatusPendingApproval, drafts[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDraftRepositoryFindByIDForUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_drafts WHERE id = $1 FOR UPDATE")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(draftRowColumns).
			AddRow("d1", "cse", "Autumn", "admin", "DRAFT", []byte(`{}`), time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_drafts WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	draft, err := repo.FindByIDForUpdate(context.Background(), nil, "d1")
	require.NoError(t, err)
	assert.Equal(t, "cse", draft.DepartmentID)

	_, err = repo.FindByIDForUpdate(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDraftRepositoryListEntriesByDrafts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	rows := sqlmock.NewRows([]string{"id", "draft_id", "position", "day", "timeslot", "batch_id", "batch_name", "subject_id", "subject_name", "faculty_id", "faculty_name", "room_id", "room_name"}).
		AddRow("e1", "d1", 0, "Monday", "09:00-10:00", "b1", "CSE-A", "ds", "DS", "f1", "Dr. A", "r101", "R101").
		AddRow("e2", "d2", 0, "Tuesday", "09:00-10:00", "b1", "CSE-A", "ds", "DS", "f1", "Dr. A", "r101", "R101")
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries WHERE draft_id = ANY($1) ORDER BY draft_id, position")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	grouped, err := repo.ListEntriesByDrafts(context.Background(), []string{"d1", "d2"})
	require.NoError(t, err)
	require.Len(t, grouped["d1"], 1)
	assert.Equal(t, "Tuesday", grouped["d2"][0].Day)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.ListEntriesByDrafts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTimetableDraftRepositoryUpdateStatusGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDraftRepository(db)

	query := regexp.QuoteMeta("UPDATE timetable_drafts SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")
	mock.ExpectExec(query).
		WithArgs(string(workflow.StatusPendingApproval), sqlmock.AnyArg(), "d1", string(workflow.StatusDraft)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(string(workflow.StatusPendingApproval), sqlmock.AnyArg(), "d1", string(workflow.StatusDraft)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, "d1", workflow.StatusDraft, workflow.StatusPendingApproval))
	err := repo.UpdateStatus(context.Background(), nil, "d1", workflow.StatusDraft, workflow.StatusPendingApproval)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
