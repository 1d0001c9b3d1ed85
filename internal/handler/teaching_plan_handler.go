package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type teachingPlanService interface {
	List(ctx context.Context, filter models.TeachingPlanFilter) ([]models.TeachingPlan, error)
	Create(ctx context.Context, session models.Session, req service.TeachingPlanRequest) (*models.TeachingPlan, error)
	Update(ctx context.Context, session models.Session, id string, req service.TeachingPlanRequest) (*models.TeachingPlan, error)
	Delete(ctx context.Context, session models.Session, id string) error
	ForStudent(ctx context.Context, session models.Session, studentID, start, end string) (*service.StudentTeachingPlans, error)
}

// TeachingPlanHandler exposes lecture schedule endpoints.
type TeachingPlanHandler struct {
	plans teachingPlanService
}

// NewTeachingPlanHandler constructs the handler.
func NewTeachingPlanHandler(plans teachingPlanService) *TeachingPlanHandler {
	return &TeachingPlanHandler{plans: plans}
}

// List godoc
// @Summary List teaching plans
// @Tags TeachingPlans
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param lecturerId query string false "Lecturer ID"
// @Param startDate query string false "From (YYYY-MM-DD)"
// @Param endDate query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teaching-plans [get]
func (h *TeachingPlanHandler) List(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context(), models.TeachingPlanFilter{
		Department: c.Query("department"),
		LecturerID: c.Query("lecturerId"),
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Create godoc
// @Summary Create teaching plan
// @Tags TeachingPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.TeachingPlanRequest true "Plan"
// @Success 201 {object} response.Envelope
// @Router /teaching-plans [post]
func (h *TeachingPlanHandler) Create(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req service.TeachingPlanRequest
	if !bindJSON(c, &req, "invalid teaching plan payload") {
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Update godoc
// @Summary Update teaching plan
// @Tags TeachingPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Param payload body service.TeachingPlanRequest true "Plan"
// @Success 200 {object} response.Envelope
// @Router /teaching-plans/{id} [put]
func (h *TeachingPlanHandler) Update(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req service.TeachingPlanRequest
	if !bindJSON(c, &req, "invalid teaching plan payload") {
		return
	}
	plan, err := h.plans.Update(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Delete godoc
// @Summary Delete teaching plan
// @Tags TeachingPlans
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 204
// @Router /teaching-plans/{id} [delete]
func (h *TeachingPlanHandler) Delete(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.plans.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ForStudent godoc
// @Summary Plans in the departments a student is assigned to
// @Tags TeachingPlans
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param startDate query string false "From (YYYY-MM-DD)"
// @Param endDate query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teaching-plans/students/{studentId} [get]
func (h *TeachingPlanHandler) ForStudent(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	plans, err := h.plans.ForStudent(c.Request.Context(), session, c.Param("studentId"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}
