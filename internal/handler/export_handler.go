package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/service"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/response"
)

type timetableExporter interface {
	Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	Download(ctx context.Context, token string) (*service.ExportFile, error)
}

// ExportHandler renders published timetables to downloadable files.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export the published timetable
// @Description Renders the (optionally filtered) published timetable and returns a signed download link.
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/timetable/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	res, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// Download godoc
// @Summary Download an exported file
// @Tags Public
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /public/exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
