package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/dto"
	"github.com/noah-isme/clinical-rotation-api/internal/middleware"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error)
	Student(ctx context.Context, session models.Session, studentID string) (*dto.StudentDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Admin godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, summary, cacheHit, start)
}

// Student godoc
// @Summary Two-week student overview
// @Description Assignments, rotations, on-call shifts and teaching plans from Monday of the current week for 14 days
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/students/{studentId} [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	session, ok := requireSession(c)
	if !ok {
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.service.Student(c.Request.Context(), session, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, overview, cacheHit, start)
}

func (h *DashboardHandler) respond(c *gin.Context, data interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "processing_time_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, data, nil, middleware.ExtractMeta(c))
}
