package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/Omgp9308/timetable-scheduler/internal/middleware"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func claimsFor(role models.UserRole, department string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-" + string(role), Username: "user", Role: role, DepartmentID: department}
}

// withClaims stands in for the JWT middleware.
func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(internalmiddleware.ContextUserKey, claims)
		}
		c.Next()
	}
}

func newTestRouter(claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withClaims(claims))
	return router
}

func perform(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}
