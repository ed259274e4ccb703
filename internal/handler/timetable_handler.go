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

type timetableWorkflow interface {
	Generate(ctx context.Context, actor service.Actor, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	GenerateAndSave(ctx context.Context, actor service.Actor, req dto.GenerateAndSaveRequest) (*dto.GenerateAndSaveResponse, error)
	ListDrafts(ctx context.Context, actor service.Actor, departmentID string) ([]models.TimetableDraft, error)
	ListPending(ctx context.Context, actor service.Actor, departmentID string) ([]models.TimetableDraft, error)
	GetDraft(ctx context.Context, actor service.Actor, id string) (*models.TimetableDraft, error)
	Submit(ctx context.Context, actor service.Actor, id string) (*models.TimetableDraft, error)
	Approve(ctx context.Context, actor service.Actor, id string) (*models.TimetableDraft, error)
	Reject(ctx context.Context, actor service.Actor, id string) (*models.TimetableDraft, error)
	GetPublished(ctx context.Context, query dto.PublishedQuery) (*dto.PublishedTimetable, error)
	Filters(ctx context.Context, departmentID string) (*dto.FilterOptions, error)
}

type transitionResponse struct {
	Message string                 `json:"message"`
	Draft   *models.TimetableDraft `json:"draft"`
}

// TimetableHandler exposes generation, approval and publication endpoints.
type TimetableHandler struct {
	service timetableWorkflow
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable preview
// @Description Runs the allocator without saving. An infeasible department answers 422 with status "failure".
// @Tags Timetables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.GenerateRequest
	if !bindOptionalJSON(c, &req, "invalid generation payload") {
		return
	}
	res, err := h.service.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if res.Status == dto.GenerateStatusFailure {
		status = http.StatusUnprocessableEntity
	}
	respond(c, status, res)
}

// GenerateAndSave godoc
// @Summary Generate a timetable and save it as a draft
// @Tags Timetables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateAndSaveRequest true "Generate payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/generate-and-save [post]
func (h *TimetableHandler) GenerateAndSave(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.GenerateAndSaveRequest
	if !bindOptionalJSON(c, &req, "invalid generation payload") {
		return
	}
	res, err := h.service.GenerateAndSave(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

// ListDrafts godoc
// @Summary List drafts of a department
// @Tags Timetables
// @Produce json
// @Security BearerAuth
// @Param department_id query string false "Department (admins only)"
// @Success 200 {object} response.Envelope
// @Router /admin/drafts [get]
func (h *TimetableHandler) ListDrafts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.DraftQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	drafts, err := h.service.ListDrafts(c.Request.Context(), actor, query.DepartmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, drafts)
}

// ListPending godoc
// @Summary List drafts awaiting approval
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param department_id query string false "Department (admins only)"
// @Success 200 {object} response.Envelope
// @Router /hod/pending [get]
func (h *TimetableHandler) ListPending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.DraftQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	drafts, err := h.service.ListPending(c.Request.Context(), actor, query.DepartmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, drafts)
}

// GetDraft godoc
// @Summary Get a draft with its entries
// @Tags Timetables
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/timetables/{id} [get]
func (h *TimetableHandler) GetDraft(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	draft, err := h.service.GetDraft(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, draft)
}

// Submit godoc
// @Summary Submit a draft for approval
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/timetables/{id}/submit [post]
func (h *TimetableHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit, "Timetable submitted for approval.")
}

// Approve godoc
// @Summary Approve and publish a draft
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /hod/timetables/{id}/approve [post]
func (h *TimetableHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve, "Timetable approved and published.")
}

// Reject godoc
// @Summary Reject a pending draft
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /hod/timetables/{id}/reject [post]
func (h *TimetableHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject, "Timetable rejected.")
}

func (h *TimetableHandler) transition(c *gin.Context, apply func(context.Context, service.Actor, string) (*models.TimetableDraft, error), message string) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	draft, err := apply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, transitionResponse{Message: message, Draft: draft})
}

// Published godoc
// @Summary Published timetable of a department
// @Tags Public
// @Produce json
// @Param department_id query string true "Department"
// @Param type query string false "Filter dimension" Enums(batch, faculty, room)
// @Param value query string false "Filter value (name or id)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/timetable [get]
func (h *TimetableHandler) Published(c *gin.Context) {
	var query dto.PublishedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	view, err := h.service.GetPublished(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// Filters godoc
// @Summary Selectable filter values for the public viewer
// @Tags Public
// @Produce json
// @Param department_id query string true "Department"
// @Success 200 {object} response.Envelope
// @Router /public/filters [get]
func (h *TimetableHandler) Filters(c *gin.Context) {
	options, err := h.service.Filters(c.Request.Context(), c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, options)
}

// bindOptionalJSON accepts an empty body so scoped callers can rely on their token's department.
func bindOptionalJSON(c *gin.Context, dest interface{}, message string) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
