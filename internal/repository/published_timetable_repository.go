package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
)

// ErrVersionConflict is returned when the published pointer moved since it was read.
var ErrVersionConflict = errors.New("published timetable version conflict")

// PublishedTimetableRepository maintains the per-department live draft pointer.
type PublishedTimetableRepository struct {
	db *sqlx.DB
}

// NewPublishedTimetableRepository constructs repository.
func NewPublishedTimetableRepository(db *sqlx.DB) *PublishedTimetableRepository {
	return &PublishedTimetableRepository{db: db}
}

func (r *PublishedTimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Get returns the department's pointer or sql.ErrNoRows when nothing is published.
func (r *PublishedTimetableRepository) Get(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*models.PublishedTimetable, error) {
	const query = `SELECT department_id, draft_id, version, published_at, published_by FROM published_timetables WHERE department_id = $1`
	var pointer models.PublishedTimetable
	if err := sqlx.GetContext(ctx, r.exec(exec), &pointer, query, departmentID); err != nil {
		return nil, err
	}
	return &pointer, nil
}

// Swap points the department at draftID if the stored version still equals
// expectedVersion (0 meaning nothing published yet) and returns the new
// version. ErrVersionConflict is returned otherwise.
func (r *PublishedTimetableRepository) Swap(ctx context.Context, exec sqlx.ExtContext, departmentID, draftID, publishedBy string, expectedVersion int64) (int64, error) {
	target := r.exec(exec)
	now := time.Now().UTC()

	var (
		query string
		args  []interface{}
	)
	if expectedVersion == 0 {
		query = `INSERT INTO published_timetables (department_id, draft_id, version, published_at, published_by)
VALUES ($1, $2, 1, $3, $4) ON CONFLICT (department_id) DO NOTHING`
		args = []interface{}{departmentID, draftID, now, publishedBy}
	} else {
		query = `UPDATE published_timetables SET draft_id = $1, version = version + 1, published_at = $2, published_by = $3
WHERE department_id = $4 AND version = $5`
		args = []interface{}{draftID, now, publishedBy, departmentID, expectedVersion}
	}

	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("swap published timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("published timetable rows affected: %w", err)
	}
	if affected == 0 {
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}
