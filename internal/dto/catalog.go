package dto

import "github.com/Omgp9308/timetable-scheduler/internal/models"

// CreateSubjectRequest adds a subject.
type CreateSubjectRequest struct {
	DepartmentID string `json:"department_id" validate:"omitempty,max=64"`
	Name         string `json:"name" validate:"required,max=120"`
	Credits      int    `json:"credits" validate:"required,min=1,max=30"`
	Type         string `json:"type" validate:"required,oneof=Theory Lab"`
}

// CreateFacultyRequest adds a faculty member.
type CreateFacultyRequest struct {
	DepartmentID string   `json:"department_id" validate:"omitempty,max=64"`
	Name         string   `json:"name" validate:"required,max=120"`
	Username     string   `json:"username" validate:"omitempty,max=64"`
	Expertise    []string `json:"expertise" validate:"dive,required"`
}

// CreateRoomRequest adds a room.
type CreateRoomRequest struct {
	DepartmentID string `json:"department_id" validate:"omitempty,max=64"`
	Name         string `json:"name" validate:"required,max=120"`
	Capacity     int    `json:"capacity" validate:"required,min=1"`
	Type         string `json:"type" validate:"required,oneof=Theory Lab"`
}

// CreateBatchRequest adds a batch.
type CreateBatchRequest struct {
	DepartmentID string   `json:"department_id" validate:"omitempty,max=64"`
	Name         string   `json:"name" validate:"required,max=120"`
	Strength     int      `json:"strength" validate:"required,min=1"`
	Subjects     []string `json:"subjects" validate:"dive,required"`
}

// CreateDepartmentRequest adds a department.
type CreateDepartmentRequest struct {
	// ID defaults to a slug of Name.
	ID   string `json:"id" validate:"omitempty,max=64"`
	Name string `json:"name" validate:"required,max=120"`
}

// CreateUserRequest provisions a login.
type CreateUserRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=64"`
	Password     string `json:"password" validate:"required,min=8"`
	Role         string `json:"role" validate:"required"`
	DepartmentID string `json:"department_id" validate:"omitempty,max=64"`
}

// CatalogQuery scopes catalog reads.
type CatalogQuery struct {
	DepartmentID string `form:"department_id"`
}

// CatalogSnapshot is every catalog record of a department.
type CatalogSnapshot struct {
	Subjects []models.Subject `json:"subjects"`
	Faculty  []models.Faculty `json:"faculty"`
	Rooms    []models.Room    `json:"rooms"`
	Batches  []models.Batch   `json:"batches"`
}

// CatalogStats feeds the dashboard counters.
type CatalogStats struct {
	Subjects         int    `json:"subjects"`
	Faculty          int    `json:"faculty"`
	Rooms            int    `json:"rooms"`
	Batches          int    `json:"batches"`
	Drafts           int    `json:"drafts"`
	PendingApprovals int    `json:"pending_approvals"`
	PublishedDraftID string `json:"published_draft_id,omitempty"`
}
