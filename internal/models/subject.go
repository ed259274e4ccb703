package models

import "time"

// SessionType distinguishes lecture subjects and rooms from lab ones.
type SessionType string

const (
	SessionTheory SessionType = "Theory"
	SessionLab    SessionType = "Lab"
)

// Subject represents a course taught to batches. Credits equal weekly theory
// sessions.
type Subject struct {
	ID           string      `db:"id" json:"id"`
	DepartmentID string      `db:"department_id" json:"department_id"`
	Name         string      `db:"name" json:"name"`
	Credits      int         `db:"credits" json:"credits"`
	Type         SessionType `db:"type" json:"type"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
