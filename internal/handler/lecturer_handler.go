package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

type lecturerService interface {
	List(ctx context.Context, filter models.LecturerFilter) ([]models.Lecturer, error)
	Get(ctx context.Context, id string) (*models.Lecturer, error)
	Create(ctx context.Context, req service.LecturerRequest) (*models.Lecturer, error)
	Update(ctx context.Context, id string, req service.LecturerRequest) (*models.Lecturer, error)
	Delete(ctx context.Context, id string) error
	Template() ([]byte, error)
	Import(ctx context.Context, r io.Reader) (*service.ImportResult, error)
}

// LecturerHandler exposes lecturer endpoints.
type LecturerHandler struct {
	lecturers lecturerService
}

// NewLecturerHandler constructs the handler.
func NewLecturerHandler(lecturers lecturerService) *LecturerHandler {
	return &LecturerHandler{lecturers: lecturers}
}

// List godoc
// @Summary List lecturers
// @Tags Lecturers
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /lecturers [get]
func (h *LecturerHandler) List(c *gin.Context) {
	lecturers, err := h.lecturers.List(c.Request.Context(), models.LecturerFilter{
		Department: c.Query("department"),
		Search:     strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturers, nil)
}

// Get godoc
// @Summary Get lecturer
// @Tags Lecturers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lecturer ID"
// @Success 200 {object} response.Envelope
// @Router /lecturers/{id} [get]
func (h *LecturerHandler) Get(c *gin.Context) {
	lecturer, err := h.lecturers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturer, nil)
}

// Create godoc
// @Summary Create lecturer
// @Tags Lecturers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.LecturerRequest true "Lecturer payload"
// @Success 201 {object} response.Envelope
// @Router /lecturers [post]
func (h *LecturerHandler) Create(c *gin.Context) {
	var req service.LecturerRequest
	if !bindJSON(c, &req, "invalid lecturer payload") {
		return
	}
	lecturer, err := h.lecturers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecturer)
}

// Update godoc
// @Summary Update lecturer
// @Tags Lecturers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lecturer ID"
// @Param payload body service.LecturerRequest true "Lecturer payload"
// @Success 200 {object} response.Envelope
// @Router /lecturers/{id} [put]
func (h *LecturerHandler) Update(c *gin.Context) {
	var req service.LecturerRequest
	if !bindJSON(c, &req, "invalid lecturer payload") {
		return
	}
	lecturer, err := h.lecturers.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturer, nil)
}

// Delete godoc
// @Summary Delete lecturer
// @Tags Lecturers
// @Security BearerAuth
// @Param id path string true "Lecturer ID"
// @Success 204
// @Router /lecturers/{id} [delete]
func (h *LecturerHandler) Delete(c *gin.Context) {
	if err := h.lecturers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Template godoc
// @Summary Download the lecturer import template
// @Tags Lecturers
// @Produce octet-stream
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /lecturers/template [get]
func (h *LecturerHandler) Template(c *gin.Context) {
	payload, err := h.lecturers.Template()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "Mau_Nhap_Giang_Vien.xlsx", xlsxContentType, payload)
}

// Import godoc
// @Summary Import lecturers from a workbook
// @Tags Lecturers
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Workbook"
// @Success 200 {object} response.Envelope
// @Router /lecturers/import [post]
func (h *LecturerHandler) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read upload"))
		return
	}
	defer f.Close() //nolint:errcheck

	result, err := h.lecturers.Import(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
