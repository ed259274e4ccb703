package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/pkg/config"
)

const (
	allowHeaders = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods = "GET, POST, DELETE, OPTIONS"
)

// New returns a CORS middleware honoring the configured origins. An empty
// list allows any origin, which matches local front-end development.
func New(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		originSet[normalize(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && allowAll:
			header.Set("Access-Control-Allow-Origin", origin)
		case origin != "":
			if _, ok := originSet[normalize(origin)]; ok {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
			}
		case allowAll:
			header.Set("Access-Control-Allow-Origin", "*")
		}

		header.Add("Vary", "Origin")
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		header.Set("Access-Control-Allow-Methods", allowMethods)
		header.Set("Access-Control-Expose-Headers", "X-Request-ID")
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
