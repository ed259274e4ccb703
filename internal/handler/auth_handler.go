package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/service"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/response"
)

type authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
}

// AuthHandler manages authentication endpoints.
type AuthHandler struct {
	service authenticator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate user
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// Me godoc
// @Summary Current user profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	info, err := h.service.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, info)
}

// Logout godoc
// @Summary Log out
// @Description Tokens are stateless; the client discards its token.
// @Tags Auth
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	response.NoContent(c)
}
