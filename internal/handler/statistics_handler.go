package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/dto"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type statisticsService interface {
	TeachingHours(ctx context.Context, q service.StatisticsQuery) ([]models.LecturerHours, error)
	Render(ctx context.Context, q service.StatisticsQuery, format models.ExportFormat) ([]byte, string, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, session models.Session, req dto.ExportRequest) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, session models.Session, id string) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// StatisticsHandler serves teaching-hour statistics and their exports.
type StatisticsHandler struct {
	stats   statisticsService
	exports exportJobService
}

// NewStatisticsHandler constructs the handler. exports may be nil when
// asynchronous exports are disabled.
func NewStatisticsHandler(stats statisticsService, exports exportJobService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats, exports: exports}
}

// TeachingHours godoc
// @Summary Teaching hours per lecturer
// @Description Clinical sessions count 1.5 hours and theory sessions 0.5, highest total first
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param startWeek query int false "First week, default 1"
// @Param endWeek query int false "Last week, default 52"
// @Success 200 {object} response.Envelope
// @Router /statistics/teaching-hours [get]
func (h *StatisticsHandler) TeachingHours(c *gin.Context) {
	q, ok := h.scopedQuery(c)
	if !ok {
		return
	}
	rows, err := h.stats.TeachingHours(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// TeachingHoursWorkbook godoc
// @Summary Download teaching hours as a workbook
// @Tags Statistics
// @Produce octet-stream
// @Security BearerAuth
// @Param department query string false "Department"
// @Param startWeek query int false "First week"
// @Param endWeek query int false "Last week"
// @Success 200 {file} binary
// @Router /statistics/teaching-hours.xlsx [get]
func (h *StatisticsHandler) TeachingHoursWorkbook(c *gin.Context) {
	q, ok := h.scopedQuery(c)
	if !ok {
		return
	}
	payload, filename, err := h.stats.Render(c.Request.Context(), q, models.ExportFormatXLSX)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, xlsxContentType, payload)
}

// CreateExport godoc
// @Summary Queue a teaching-hours export
// @Tags Statistics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /statistics/exports [post]
func (h *StatisticsHandler) CreateExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.ExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /statistics/exports/{id} [get]
func (h *StatisticsHandler) ExportStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	session, ok := requireSession(c)
	if !ok {
		return
	}
	status, err := h.exports.GetStatus(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description Authorised by the signed token alone
// @Tags Statistics
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *StatisticsHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	response.AttachmentReader(c, download.Filename, contentTypeFor(download.Format), info.Size(), download.File)
}

func (h *StatisticsHandler) scopedQuery(c *gin.Context) (service.StatisticsQuery, bool) {
	session, ok := requireSession(c)
	if !ok {
		return service.StatisticsQuery{}, false
	}
	var q service.StatisticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid statistics query"))
		return q, false
	}
	q.Department = strings.TrimSpace(q.Department)
	scoped, err := service.ScopeStatisticsQuery(session, q)
	if err != nil {
		response.Error(c, err)
		return q, false
	}
	return scoped, true
}
