package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
)

// ScheduleEntry is one persisted timetable period. Display names are stored
// next to ids so published timetables survive later catalog edits.
type ScheduleEntry struct {
	ID        string `db:"id" json:"-"`
	DraftID   string `db:"draft_id" json:"-"`
	Position  int    `db:"position" json:"-"`
	Day       string `db:"day" json:"day"`
	Timeslot  string `db:"timeslot" json:"timeslot"`
	BatchID   string `db:"batch_id" json:"batch_id"`
	Batch     string `db:"batch_name" json:"batch"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	Subject   string `db:"subject_name" json:"subject"`
	FacultyID string `db:"faculty_id" json:"faculty_id"`
	Faculty   string `db:"faculty_name" json:"faculty"`
	RoomID    string `db:"room_id" json:"room_id"`
	Room      string `db:"room_name" json:"room"`
}

// TimetableDraft is a generated timetable moving through the approval workflow.
type TimetableDraft struct {
	ID           string          `db:"id" json:"id"`
	DepartmentID string          `db:"department_id" json:"department_id"`
	Name         string          `db:"name" json:"name"`
	Owner        string          `db:"owner" json:"owner"`
	Status       workflow.Status `db:"status" json:"status"`
	Meta         types.JSONText  `db:"meta" json:"meta,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	Entries      []ScheduleEntry `db:"-" json:"data"`
}

// GenerationMeta is stored in TimetableDraft.Meta.
type GenerationMeta struct {
	Tasks               int   `json:"tasks"`
	Entries             int   `json:"entries"`
	Iterations          int   `json:"iterations"`
	Backtracks          int   `json:"backtracks"`
	ElapsedMS           int64 `json:"elapsed_ms"`
	LabBlocksPerWeek    int   `json:"lab_blocks_per_week"`
	MaxFacultyDailyLoad int   `json:"max_faculty_daily_load,omitempty"`
}

// PublishedTimetable is the versioned per-department pointer to the live draft.
type PublishedTimetable struct {
	DepartmentID string    `db:"department_id" json:"department_id"`
	DraftID      string    `db:"draft_id" json:"draft_id"`
	Version      int64     `db:"version" json:"version"`
	PublishedAt  time.Time `db:"published_at" json:"published_at"`
	PublishedBy  string    `db:"published_by" json:"published_by"`
}
