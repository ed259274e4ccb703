package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/service"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/response"
)

type catalogManager interface {
	Snapshot(ctx context.Context, actor service.Actor, departmentID string) (*dto.CatalogSnapshot, error)
	Stats(ctx context.Context, actor service.Actor, departmentID string) (*dto.CatalogStats, error)
	CreateSubject(ctx context.Context, actor service.Actor, req dto.CreateSubjectRequest) (*models.Subject, error)
	CreateFaculty(ctx context.Context, actor service.Actor, req dto.CreateFacultyRequest) (*models.Faculty, error)
	CreateRoom(ctx context.Context, actor service.Actor, req dto.CreateRoomRequest) (*models.Room, error)
	CreateBatch(ctx context.Context, actor service.Actor, req dto.CreateBatchRequest) (*models.Batch, error)
	Delete(ctx context.Context, actor service.Actor, kind, departmentID, id string) error
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error)
}

// CatalogHandler manages subjects, faculty, rooms, batches and departments.
type CatalogHandler struct {
	service catalogManager
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// AllData godoc
// @Summary Every catalog record of a department
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param department_id query string false "Department (admins only)"
// @Success 200 {object} response.Envelope
// @Router /admin/all-data [get]
func (h *CatalogHandler) AllData(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	snapshot, err := h.service.Snapshot(c.Request.Context(), actor, c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, snapshot)
}

// Stats godoc
// @Summary Dashboard counters
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param department_id query string false "Department (admins only)"
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *CatalogHandler) Stats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor, c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// CreateSubject godoc
// @Summary Add a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /admin/subjects [post]
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	create(c, &req, "invalid subject payload", func(ctx context.Context, actor service.Actor) (interface{}, error) {
		return h.service.CreateSubject(ctx, actor, req)
	})
}

// CreateFaculty godoc
// @Summary Add a faculty member
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateFacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /admin/faculty [post]
func (h *CatalogHandler) CreateFaculty(c *gin.Context) {
	var req dto.CreateFacultyRequest
	create(c, &req, "invalid faculty payload", func(ctx context.Context, actor service.Actor) (interface{}, error) {
		return h.service.CreateFaculty(ctx, actor, req)
	})
}

// CreateRoom godoc
// @Summary Add a room
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Router /admin/rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	create(c, &req, "invalid room payload", func(ctx context.Context, actor service.Actor) (interface{}, error) {
		return h.service.CreateRoom(ctx, actor, req)
	})
}

// CreateBatch godoc
// @Summary Add a batch
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateBatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /admin/batches [post]
func (h *CatalogHandler) CreateBatch(c *gin.Context) {
	var req dto.CreateBatchRequest
	create(c, &req, "invalid batch payload", func(ctx context.Context, actor service.Actor) (interface{}, error) {
		return h.service.CreateBatch(ctx, actor, req)
	})
}

// Delete returns a handler removing one record of the given catalog kind.
// @Summary Delete a catalog record
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param kind path string true "subjects, faculty, rooms or batches"
// @Param id path string true "Record ID"
// @Param department_id query string false "Department (admins only)"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /admin/{kind}/{id} [delete]
func (h *CatalogHandler) Delete(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		if err := h.service.Delete(c.Request.Context(), actor, kind, c.Query("department_id"), c.Param("id")); err != nil {
			response.Error(c, err)
			return
		}
		response.NoContent(c)
	}
}

// ListDepartments godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/departments [get]
func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	items, err := h.service.ListDepartments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

// CreateDepartment godoc
// @Summary Add a department
// @Tags Departments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateDepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/departments [post]
func (h *CatalogHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload"))
		return
	}
	dept, err := h.service.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, dept)
}

// create binds req, runs fn on behalf of the caller and answers 201 with its result.
func create(c *gin.Context, req interface{}, message string, fn func(context.Context, service.Actor) (interface{}, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return
	}
	created, err := fn(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, created)
}
