package models

import (
	"time"

	"github.com/lib/pq"
)

// Faculty is a teacher together with the subject ids they may teach.
type Faculty struct {
	ID           string         `db:"id" json:"id"`
	DepartmentID string         `db:"department_id" json:"department_id"`
	Name         string         `db:"name" json:"name"`
	Username     *string        `db:"username" json:"username,omitempty"`
	Expertise    pq.StringArray `db:"expertise" json:"expertise"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
