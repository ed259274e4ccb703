package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[models.NormalizeRole(string(claims.Role))]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}
