package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omgp9308/timetable-scheduler/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	handler := NewMetricsHandler(nil, map[string]Pinger{"database": healthy})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	handler = NewMetricsHandler(nil, map[string]Pinger{"database": healthy, "redis": down})
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordExport("csv")
	handler := NewMetricsHandler(metrics, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "export")
}
