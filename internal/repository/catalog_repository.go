package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
)

// CatalogRepository stores the per-department scheduling inputs.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const (
	subjectColumns = `id, department_id, name, credits, type, created_at`
	facultyColumns = `id, department_id, name, username, expertise, created_at`
	roomColumns    = `id, department_id, name, capacity, type, created_at`
	batchColumns   = `id, department_id, name, strength, subject_ids, created_at`
)

// ListSubjects returns a department's subjects in insertion order.
func (r *CatalogRepository) ListSubjects(ctx context.Context, departmentID string) ([]models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE department_id = $1 ORDER BY created_at, id`
	var items []models.Subject
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return items, nil
}

// ListFaculty returns a department's faculty in insertion order.
func (r *CatalogRepository) ListFaculty(ctx context.Context, departmentID string) ([]models.Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE department_id = $1 ORDER BY created_at, id`
	var items []models.Faculty
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return items, nil
}

// ListRooms returns a department's rooms in insertion order.
func (r *CatalogRepository) ListRooms(ctx context.Context, departmentID string) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE department_id = $1 ORDER BY created_at, id`
	var items []models.Room
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return items, nil
}

// ListBatches returns a department's batches in insertion order. The order is
// significant to the allocator's tie-breaks.
func (r *CatalogRepository) ListBatches(ctx context.Context, departmentID string) ([]models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE department_id = $1 ORDER BY created_at, id`
	var items []models.Batch
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return items, nil
}

func prepareCatalogRecord(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// CreateSubject inserts a subject.
func (r *CatalogRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	prepareCatalogRecord(&subject.ID, &subject.CreatedAt)
	const query = `INSERT INTO subjects (id, department_id, name, credits, type, created_at) VALUES (:id, :department_id, :name, :credits, :type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// CreateFaculty inserts a faculty member.
func (r *CatalogRepository) CreateFaculty(ctx context.Context, faculty *models.Faculty) error {
	prepareCatalogRecord(&faculty.ID, &faculty.CreatedAt)
	if faculty.Expertise == nil {
		faculty.Expertise = []string{}
	}
	const query = `INSERT INTO faculty (id, department_id, name, username, expertise, created_at) VALUES (:id, :department_id, :name, :username, :expertise, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// CreateRoom inserts a room.
func (r *CatalogRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	prepareCatalogRecord(&room.ID, &room.CreatedAt)
	const query = `INSERT INTO rooms (id, department_id, name, capacity, type, created_at) VALUES (:id, :department_id, :name, :capacity, :type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// CreateBatch inserts a batch.
func (r *CatalogRepository) CreateBatch(ctx context.Context, batch *models.Batch) error {
	prepareCatalogRecord(&batch.ID, &batch.CreatedAt)
	if batch.SubjectIDs == nil {
		batch.SubjectIDs = []string{}
	}
	const query = `INSERT INTO batches (id, department_id, name, strength, subject_ids, created_at) VALUES (:id, :department_id, :name, :strength, :subject_ids, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// catalogTables whitelists the tables Delete and Count may touch.
var catalogTables = map[string]bool{
	"subjects": true,
	"faculty":  true,
	"rooms":    true,
	"batches":  true,
}

// Delete removes a record from one of the catalog tables, scoped to the
// department. It returns sql.ErrNoRows when nothing matched.
func (r *CatalogRepository) Delete(ctx context.Context, table, departmentID, id string) error {
	if !catalogTables[table] {
		return fmt.Errorf("unknown catalog table %q", table)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND department_id = $2`, table)
	result, err := r.db.ExecContext(ctx, query, id, departmentID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of records of a catalog table in a department.
func (r *CatalogRepository) Count(ctx context.Context, table, departmentID string) (int, error) {
	if !catalogTables[table] {
		return 0, fmt.Errorf("unknown catalog table %q", table)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE department_id = $1`, table)
	var total int
	if err := r.db.GetContext(ctx, &total, query, departmentID); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

// BatchesReferencingSubject returns the names of batches listing the subject.
func (r *CatalogRepository) BatchesReferencingSubject(ctx context.Context, subjectID string) ([]string, error) {
	const query = `SELECT name FROM batches WHERE $1 = ANY(subject_ids) ORDER BY name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, subjectID); err != nil {
		return nil, fmt.Errorf("batches referencing subject: %w", err)
	}
	return names, nil
}
