package models

import (
	"time"

	"github.com/lib/pq"
)

// Batch is a student cohort with an ordered subject list.
type Batch struct {
	ID           string         `db:"id" json:"id"`
	DepartmentID string         `db:"department_id" json:"department_id"`
	Name         string         `db:"name" json:"name"`
	Strength     int            `db:"strength" json:"strength"`
	SubjectIDs   pq.StringArray `db:"subject_ids" json:"subjects"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
