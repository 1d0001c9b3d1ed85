package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type onCallService interface {
	List(ctx context.Context, session models.Session, filter models.OnCallFilter) ([]service.OnCallView, error)
	Available(ctx context.Context, session models.Session, department, date string, cohort models.CohortFilter) ([]models.Student, error)
	Create(ctx context.Context, session models.Session, req service.OnCallRequest) ([]models.OnCallSchedule, error)
	ForStudent(ctx context.Context, session models.Session, studentID string) ([]models.OnCallSchedule, error)
	CheckIn(ctx context.Context, session models.Session, id string, req service.CheckInRequest) (*models.OnCallSchedule, error)
	Delete(ctx context.Context, id string) error
}

// OnCallHandler exposes on-call scheduling endpoints.
type OnCallHandler struct {
	schedules onCallService
}

// NewOnCallHandler constructs the handler.
func NewOnCallHandler(schedules onCallService) *OnCallHandler {
	return &OnCallHandler{schedules: schedules}
}

// List godoc
// @Summary List on-call shifts
// @Tags OnCall
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param studentId query string false "Student ID"
// @Param startDate query string false "From (YYYY-MM-DD)"
// @Param endDate query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /oncall [get]
func (h *OnCallHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	views, err := h.schedules.List(c.Request.Context(), session, models.OnCallFilter{
		Department: c.Query("department"),
		StudentID:  c.Query("studentId"),
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Available godoc
// @Summary Students eligible for a shift
// @Description Students currently in the department who have no shift in the same calendar week
// @Tags OnCall
// @Produce json
// @Security BearerAuth
// @Param department query string true "Department"
// @Param date query string true "Shift date (YYYY-MM-DD)"
// @Param major query string false "Major"
// @Param course query string false "Course"
// @Param group query string false "Clinical group"
// @Success 200 {object} response.Envelope
// @Router /oncall/available [get]
func (h *OnCallHandler) Available(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var cohort models.CohortFilter
	if err := c.ShouldBindQuery(&cohort); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cohort filter"))
		return
	}
	students, err := h.schedules.Available(c.Request.Context(), session, c.Query("department"), c.Query("date"), cohort)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Create godoc
// @Summary Schedule on-call shifts
// @Description One shift per student and requested shift time; all or nothing
// @Tags OnCall
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.OnCallRequest true "Shifts"
// @Success 201 {object} response.Envelope
// @Router /oncall [post]
func (h *OnCallHandler) Create(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req service.OnCallRequest
	if !bindJSON(c, &req, "invalid on-call payload") {
		return
	}
	created, err := h.schedules.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ForStudent godoc
// @Summary Shifts of one student
// @Tags OnCall
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /oncall/students/{studentId} [get]
func (h *OnCallHandler) ForStudent(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	items, err := h.schedules.ForStudent(c.Request.Context(), session, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CheckIn godoc
// @Summary Check in to a shift
// @Tags OnCall
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param payload body service.CheckInRequest true "Coordinates"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /oncall/{id}/check-in [post]
func (h *OnCallHandler) CheckIn(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req service.CheckInRequest
	if !bindJSON(c, &req, "invalid check-in payload") {
		return
	}
	schedule, err := h.schedules.CheckIn(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete shift
// @Tags OnCall
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 204
// @Router /oncall/{id} [delete]
func (h *OnCallHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
