package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
)

// TimetableDraftRepository persists generated timetables and their entries.
type TimetableDraftRepository struct {
	db *sqlx.DB
}

// NewTimetableDraftRepository constructs repository.
func NewTimetableDraftRepository(db *sqlx.DB) *TimetableDraftRepository {
	return &TimetableDraftRepository{db: db}
}

func (r *TimetableDraftRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const (
	draftColumns = `id, department_id, name, owner, status, meta, created_at, updated_at`
	entryColumns = `id, draft_id, position, day, timeslot, batch_id, batch_name, subject_id, subject_name, faculty_id, faculty_name, room_id, room_name`
)

// Create inserts the draft row.
func (r *TimetableDraftRepository) Create(ctx context.Context, exec sqlx.ExtContext, draft *models.TimetableDraft) error {
	if draft == nil {
		return fmt.Errorf("draft payload is nil")
	}
	if draft.DepartmentID == "" {
		return fmt.Errorf("department_id is required")
	}
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.Status == "" {
		draft.Status = workflow.StatusDraft
	}
	if len(draft.Meta) == 0 {
		draft.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	const query = `
INSERT INTO timetable_drafts (id, department_id, name, owner, status, meta, created_at, updated_at)
VALUES (:id, :department_id, :name, :owner, :status, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, draft); err != nil {
		return fmt.Errorf("insert timetable draft: %w", err)
	}
	return nil
}

// InsertEntries stores the draft's entries, numbering them in slice order.
func (r *TimetableDraftRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, draftID string, entries []models.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		entries[i].DraftID = draftID
		entries[i].Position = i
	}
	const query = `
INSERT INTO timetable_entries (` + entryColumns + `)
VALUES (:id, :draft_id, :position, :day, :timeslot, :batch_id, :batch_name, :subject_id, :subject_name, :faculty_id, :faculty_name, :room_id, :room_name)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entries); err != nil {
		return fmt.Errorf("insert timetable entries: %w", err)
	}
	return nil
}

// FindByID loads a draft without entries.
func (r *TimetableDraftRepository) FindByID(ctx context.Context, id string) (*models.TimetableDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM timetable_drafts WHERE id = $1`
	var draft models.TimetableDraft
	if err := r.db.GetContext(ctx, &draft, query, id); err != nil {
		return nil, err
	}
	return &draft, nil
}

// FindByIDForUpdate loads a draft and locks its row until the transaction ends.
func (r *TimetableDraftRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimetableDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM timetable_drafts WHERE id = $1 FOR UPDATE`
	var draft models.TimetableDraft
	if err := sqlx.GetContext(ctx, r.exec(exec), &draft, query, id); err != nil {
		return nil, err
	}
	return &draft, nil
}

// ListByDepartment returns drafts of a department, newest first, optionally
// restricted to the given statuses.
func (r *TimetableDraftRepository) ListByDepartment(ctx context.Context, departmentID string, statuses ...workflow.Status) ([]models.TimetableDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM timetable_drafts WHERE department_id = $1`
	args := []interface{}{departmentID}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(values))
	}
	query += ` ORDER BY created_at DESC, id`

	var drafts []models.TimetableDraft
	if err := r.db.SelectContext(ctx, &drafts, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable drafts: %w", err)
	}
	return drafts, nil
}

// CountByStatus returns the number of drafts of a department in a status.
func (r *TimetableDraftRepository) CountByStatus(ctx context.Context, departmentID string, status workflow.Status) (int, error) {
	const query = `SELECT COUNT(*) FROM timetable_drafts WHERE department_id = $1 AND status = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, departmentID, status); err != nil {
		return 0, fmt.Errorf("count timetable drafts: %w", err)
	}
	return total, nil
}

// ListEntries returns a draft's entries in stored order.
func (r *TimetableDraftRepository) ListEntries(ctx context.Context, draftID string) ([]models.ScheduleEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timetable_entries WHERE draft_id = $1 ORDER BY position`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, draftID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// ListEntriesByDrafts returns entries grouped by draft id.
func (r *TimetableDraftRepository) ListEntriesByDrafts(ctx context.Context, draftIDs []string) (map[string][]models.ScheduleEntry, error) {
	grouped := make(map[string][]models.ScheduleEntry, len(draftIDs))
	if len(draftIDs) == 0 {
		return grouped, nil
	}
	query := `SELECT ` + entryColumns + ` FROM timetable_entries WHERE draft_id = ANY($1) ORDER BY draft_id, position`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(draftIDs)); err != nil {
		return nil, fmt.Errorf("list timetable entries by drafts: %w", err)
	}
	for _, e := range entries {
		grouped[e.DraftID] = append(grouped[e.DraftID], e)
	}
	return grouped, nil
}

// UpdateStatus moves a draft from one status to another. The from guard makes
// the update a no-op when another writer already moved the draft, in which
// case sql.ErrNoRows is returned.
func (r *TimetableDraftRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to workflow.Status) error {
	const query = `UPDATE timetable_drafts SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update timetable draft status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable draft status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
