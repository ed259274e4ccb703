package dto

import (
	"encoding/json"
	"time"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
)

// Generation outcome labels returned to the front end.
const (
	GenerateStatusSuccess = "success"
	GenerateStatusFailure = "failure"
)

// GenerateRequest asks for a timetable of a department. Non-admin callers may
// omit DepartmentID; their token's department is used instead.
type GenerateRequest struct {
	DepartmentID string `json:"department_id" validate:"omitempty,max=64"`
}

// GenerateStats summarises the search.
type GenerateStats struct {
	Tasks      int   `json:"tasks"`
	Iterations int   `json:"iterations"`
	Backtracks int   `json:"backtracks"`
	ElapsedMS  int64 `json:"elapsed_ms"`
}

// GenerateResponse mirrors the success/failure contract of the generator.
type GenerateResponse struct {
	Status    string                 `json:"status"`
	Timetable []models.ScheduleEntry `json:"timetable,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Stats     *GenerateStats         `json:"stats,omitempty"`
}

// MarshalJSON always emits the timetable array of a successful generation,
// even when the department has nothing to schedule.
func (r GenerateResponse) MarshalJSON() ([]byte, error) {
	type plain GenerateResponse
	if r.Status != GenerateStatusSuccess {
		return json.Marshal(plain(r))
	}
	timetable := r.Timetable
	if timetable == nil {
		timetable = []models.ScheduleEntry{}
	}
	return json.Marshal(struct {
		plain
		Timetable []models.ScheduleEntry `json:"timetable"`
	}{plain(r), timetable})
}

// GenerateAndSaveRequest generates a timetable and stores it as a draft.
type GenerateAndSaveRequest struct {
	DepartmentID string `json:"department_id" validate:"omitempty,max=64"`
	Name         string `json:"name" validate:"omitempty,max=120"`
}

// GenerateAndSaveResponse wraps the stored draft.
type GenerateAndSaveResponse struct {
	Message string                 `json:"message"`
	Draft   *models.TimetableDraft `json:"draft"`
}

// DraftQuery filters draft listings.
type DraftQuery struct {
	DepartmentID string `form:"department_id"`
}

// Published timetable filter dimensions.
const (
	FilterBatch   = "batch"
	FilterFaculty = "faculty"
	FilterRoom    = "room"
)

// PublishedQuery selects a slice of the published timetable.
type PublishedQuery struct {
	DepartmentID string `form:"department_id" json:"department_id" validate:"required"`
	Type         string `form:"type" json:"type" validate:"omitempty,oneof=batch faculty room"`
	Value        string `form:"value" json:"value" validate:"required_with=Type"`
}

// PublishedTimetable is the public view of a department's live timetable.
type PublishedTimetable struct {
	DepartmentID string                 `json:"department_id"`
	DraftID      string                 `json:"draft_id"`
	Name         string                 `json:"name"`
	Version      int64                  `json:"version"`
	PublishedAt  time.Time              `json:"published_at"`
	Entries      []models.ScheduleEntry `json:"entries"`
}

// FilterOptions lists the selectable values of the public viewer.
type FilterOptions struct {
	Batches []string `json:"batches"`
	Faculty []string `json:"faculty"`
	Rooms   []string `json:"rooms"`
}

// Export formats.
const (
	ExportCSV  = "csv"
	ExportPDF  = "pdf"
	ExportXLSX = "xlsx"
	ExportICS  = "ics"
)

// ExportRequest renders (a slice of) the published timetable to a file.
type ExportRequest struct {
	DepartmentID string `json:"department_id" validate:"required"`
	Type         string `json:"type" validate:"omitempty,oneof=batch faculty room"`
	Value        string `json:"value" validate:"required_with=Type"`
	Format       string `json:"format" validate:"required,oneof=csv pdf xlsx ics"`
}

// ExportResponse points at the rendered file.
type ExportResponse struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}
