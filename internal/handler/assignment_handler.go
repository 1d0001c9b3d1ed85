package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type assignmentService interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Overview(ctx context.Context, department string, window rotation.DateRange) ([]service.DepartmentOverview, error)
	Check(ctx context.Context, req service.AssignmentRequest) (*service.AssignmentCheckResult, error)
	Create(ctx context.Context, req service.AssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

// AssignmentHandler exposes department assignment endpoints.
type AssignmentHandler struct {
	assignments assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(assignments assignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// List godoc
// @Summary List assignments
// @Description Latest start first. Lecturer sessions bound to a department only see that department
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param studentId query string false "Student ID"
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	department, err := service.ScopeDepartment(session, c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.assignments.List(c.Request.Context(), models.AssignmentFilter{
		Department: department,
		StudentID:  c.Query("studentId"),
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Overview godoc
// @Summary Assignments grouped by department
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assignments/overview [get]
func (h *AssignmentHandler) Overview(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	department, err := service.ScopeDepartment(session, c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	window := rotation.NewDateRange(c.Query("startDate"), c.Query("endDate"))
	overview, err := h.assignments.Overview(c.Request.Context(), department, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Check godoc
// @Summary Dry-run conflict check
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AssignmentRequest true "Proposed assignment"
// @Success 200 {object} response.Envelope
// @Router /assignments/check [post]
func (h *AssignmentHandler) Check(c *gin.Context) {
	var req service.AssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	result, err := h.assignments.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Create assignment
// @Description Rejected with ASSIGNMENT_CONFLICT when any student already belongs to an overlapping assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.AssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.assignments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
