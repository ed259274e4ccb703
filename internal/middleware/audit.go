package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/pkg/middleware/requestid"
)

// Audit logs successful mutating requests together with the acting user.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", requestid.Value(c)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if claims, ok := CurrentClaims(c); ok {
			fields = append(fields,
				zap.String("user_id", claims.UserID),
				zap.String("username", claims.Username),
				zap.String("role", string(claims.Role)),
			)
		}
		logger.Info("audit", fields...)
	}
}
