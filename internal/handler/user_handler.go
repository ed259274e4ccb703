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

type userManager interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, actor service.Actor, req dto.CreateUserRequest) (*models.User, error)
}

// UserHandler manages login accounts.
type UserHandler struct {
	service userManager
}

// NewUserHandler constructs the handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, users)
}

// Create godoc
// @Summary Create a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}
	user, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}
