package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/service"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
	"github.com/noah-isme/roomboard/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, query dto.ExportQuery) (*service.ExportResult, error)
}

// ExportHandler streams rendered board exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Download the schedule or conflict report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Produce text/calendar
// @Param kind query string false "placements or conflicts"
// @Param format query string true "csv, pdf or ics"
// @Param eventId query string false "Event ID"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
