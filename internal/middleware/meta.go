package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/pkg/middleware/requestid"
)

const requestStartKey = "request_start"

// WithResponseMeta stamps the request start so handlers can report timing in the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// ResponseMeta builds the envelope meta block for the current request.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	meta := map[string]interface{}{}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	if v, ok := c.Get(requestStartKey); ok {
		if start, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	return meta
}
