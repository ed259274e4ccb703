package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/internal/middleware"
	"github.com/Omgp9308/timetable-scheduler/internal/service"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/response"
)

// actorFromContext resolves the caller set by the JWT middleware. It writes a
// 401 and returns false when the route was reached without claims.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

func respond(c *gin.Context, status int, data interface{}) {
	response.JSON(c, status, data, middleware.ResponseMeta(c))
}
