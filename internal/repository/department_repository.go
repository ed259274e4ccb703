package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
)

// DepartmentRepository persists departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs a department repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns all departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments ORDER BY name`
	var items []models.Department
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return items, nil
}

// Exists reports whether a department id is known.
func (r *DepartmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT id FROM departments WHERE id = $1`
	var found string
	if err := r.db.GetContext(ctx, &found, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("find department: %w", err)
	}
	return true, nil
}

// Create inserts a department. The id is caller-chosen (e.g. "cse").
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.CreatedAt.IsZero() {
		department.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}
