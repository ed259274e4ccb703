package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics records request outcomes.
type HTTPMetrics interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics returns middleware that captures request metrics. Unmatched routes
// are grouped under one label to keep cardinality bounded.
func Metrics(metrics HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
