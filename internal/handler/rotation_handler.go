package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type rotationService interface {
	List(ctx context.Context, session models.Session, department string) ([]service.RotationView, error)
	Available(ctx context.Context, session models.Session, mainDepartment, start, end string) ([]models.Student, error)
	ForStudent(ctx context.Context, session models.Session, studentID string) ([]models.ClinicalRotation, error)
	Create(ctx context.Context, session models.Session, req service.RotationRequest) ([]models.ClinicalRotation, error)
	Delete(ctx context.Context, session models.Session, id string) error
}

// RotationHandler exposes sub-department rotation endpoints.
type RotationHandler struct {
	rotations rotationService
}

// NewRotationHandler constructs the handler.
func NewRotationHandler(rotations rotationService) *RotationHandler {
	return &RotationHandler{rotations: rotations}
}

// List godoc
// @Summary Combined rotation view
// @Description Stored rotations plus rotations derived from assignments to sub-departments
// @Tags Rotations
// @Produce json
// @Security BearerAuth
// @Param department query string false "Main department"
// @Success 200 {object} response.Envelope
// @Router /rotations [get]
func (h *RotationHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	views, err := h.rotations.List(c.Request.Context(), session, c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Available godoc
// @Summary Students eligible for a sub-rotation
// @Tags Rotations
// @Produce json
// @Security BearerAuth
// @Param mainDepartment query string true "Main department"
// @Param startDate query string false "Period start (YYYY-MM-DD)"
// @Param endDate query string false "Period end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /rotations/available [get]
func (h *RotationHandler) Available(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	students, err := h.rotations.Available(c.Request.Context(), session, c.Query("mainDepartment"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ForStudent godoc
// @Summary Rotations of one student
// @Tags Rotations
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/students/{studentId} [get]
func (h *RotationHandler) ForStudent(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	items, err := h.rotations.ForStudent(c.Request.Context(), session, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create sub-rotations
// @Description One rotation per student; nothing is stored unless every student is eligible
// @Tags Rotations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RotationRequest true "Rotation"
// @Success 201 {object} response.Envelope
// @Router /rotations [post]
func (h *RotationHandler) Create(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req service.RotationRequest
	if !bindJSON(c, &req, "invalid rotation payload") {
		return
	}
	created, err := h.rotations.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Delete godoc
// @Summary Delete rotation
// @Description Derived rotations cannot be deleted
// @Tags Rotations
// @Security BearerAuth
// @Param id path string true "Rotation ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /rotations/{id} [delete]
func (h *RotationHandler) Delete(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.rotations.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
