package models

import "time"

// Room is a teaching space.
type Room struct {
	ID           string      `db:"id" json:"id"`
	DepartmentID string      `db:"department_id" json:"department_id"`
	Name         string      `db:"name" json:"name"`
	Capacity     int         `db:"capacity" json:"capacity"`
	Type         SessionType `db:"type" json:"type"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
