package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type clinicalReportService interface {
	List(ctx context.Context, session models.Session, filter models.ClinicalReportFilter) ([]models.ClinicalReport, error)
	Create(ctx context.Context, session models.Session, req service.ClinicalReportRequest) (*models.ClinicalReport, error)
	Candidates(ctx context.Context, department string) (*service.ReportCandidates, error)
}

// ClinicalReportHandler exposes weekly report endpoints.
type ClinicalReportHandler struct {
	reports clinicalReportService
}

// NewClinicalReportHandler constructs the handler.
func NewClinicalReportHandler(reports clinicalReportService) *ClinicalReportHandler {
	return &ClinicalReportHandler{reports: reports}
}

// List godoc
// @Summary List clinical reports
// @Description Newest week first. Lecturers see the reports they filed unless lecturerId is given
// @Tags ClinicalReports
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param lecturerId query string false "Author"
// @Param startWeek query int false "First week"
// @Param endWeek query int false "Last week"
// @Success 200 {object} response.Envelope
// @Router /clinical-reports [get]
func (h *ClinicalReportHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	filter := models.ClinicalReportFilter{
		Department: c.Query("department"),
		LecturerID: c.Query("lecturerId"),
	}
	var err error
	if filter.StartWeek, err = optionalWeek(c, "startWeek"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.EndWeek, err = optionalWeek(c, "endWeek"); err != nil {
		response.Error(c, err)
		return
	}
	reports, err := h.reports.List(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Create godoc
// @Summary File a weekly report
// @Tags ClinicalReports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ClinicalReportRequest true "Report"
// @Success 201 {object} response.Envelope
// @Router /clinical-reports [post]
func (h *ClinicalReportHandler) Create(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req service.ClinicalReportRequest
	if !bindJSON(c, &req, "invalid report payload") {
		return
	}
	report, err := h.reports.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Candidates godoc
// @Summary Lecturers, students and cohorts of a department
// @Tags ClinicalReports
// @Produce json
// @Security BearerAuth
// @Param department query string true "Department"
// @Success 200 {object} response.Envelope
// @Router /clinical-reports/candidates [get]
func (h *ClinicalReportHandler) Candidates(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	department, err := service.ScopeDepartment(session, c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	candidates, err := h.reports.Candidates(c.Request.Context(), department)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

func optionalWeek(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	week, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return week, nil
}
