package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/middleware/requestid"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var testTokens = stubValidator{
	"admin":   {UserID: "u1", Username: "admin", Role: models.RoleAdmin},
	"teacher": {UserID: "u2", Username: "teacher_cse", Role: models.RoleTeacher, DepartmentID: "cse"},
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x/:id", append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })...)
	return r
}

func serve(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x/42", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRequireRoles(t *testing.T) {
	r := newRouter(JWT(testTokens), RequireRoles(models.RoleAdmin, models.RoleHOD))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token admin").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer nope").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer teacher").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "bearer admin").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer admin").Code)
}

func TestOptionalJWT(t *testing.T) {
	var seen *models.JWTClaims
	r := newRouter(OptionalJWT(testTokens), func(c *gin.Context) {
		seen, _ = CurrentClaims(c)
	})

	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer nope").Code)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer teacher").Code)
	require.NotNil(t, seen)
	assert.Equal(t, "cse", seen.DepartmentID)
}

type recordedRequest struct {
	method, path string
	status       int
}

type metricsRecorder struct {
	calls []recordedRequest
}

func (m *metricsRecorder) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	m.calls = append(m.calls, recordedRequest{method, path, status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	rec := &metricsRecorder{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(rec))
	r.GET("/x/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "")
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/x/:id", http.StatusOK}, rec.calls[0])
	assert.Equal(t, "unmatched", rec.calls[1].path)
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRouter(JWT(testTokens), Audit(zap.New(core), "timetable.approve"))

	serve(r, "Bearer admin")
	serve(r, "Bearer nope")

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "timetable.approve", fields["action"])
	assert.Equal(t, "42", fields["resource_id"])
	assert.Equal(t, "admin", fields["username"])
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-1", meta["request_id"])
	assert.Contains(t, meta, "processing_time_ms")
}
