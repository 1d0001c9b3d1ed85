package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

const maxImportBytes = 32 << 20

type databaseService interface {
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, payload []byte) (*models.ImportSummary, error)
	Reset(ctx context.Context) error
	Orphans(ctx context.Context) (*models.IntegrityReport, error)
}

// DatabaseHandler exposes whole-store administration.
type DatabaseHandler struct {
	database databaseService
	now      func() time.Time
}

// NewDatabaseHandler constructs the handler.
func NewDatabaseHandler(database databaseService) *DatabaseHandler {
	return &DatabaseHandler{database: database, now: time.Now}
}

// Export godoc
// @Summary Download every collection as one JSON document
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /admin/database/export [get]
func (h *DatabaseHandler) Export(c *gin.Context) {
	payload, err := h.database.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "clinical-rotation-backup-" + h.now().Format("20060102_150405") + ".json"
	response.Attachment(c, filename, "application/json", payload)
}

// Import godoc
// @Summary Replace collections from a backup document
// @Description Collections absent from the document are left untouched
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/database/import [post]
func (h *DatabaseHandler) Import(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read backup"))
		return
	}
	summary, err := h.database.Import(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Reset godoc
// @Summary Clear every collection and reseed defaults
// @Tags Admin
// @Security BearerAuth
// @Success 204
// @Router /admin/database/reset [post]
func (h *DatabaseHandler) Reset(c *gin.Context) {
	if err := h.database.Reset(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Orphans godoc
// @Summary Dangling student and lecturer references
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/integrity/orphans [get]
func (h *DatabaseHandler) Orphans(c *gin.Context) {
	report, err := h.database.Orphans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
