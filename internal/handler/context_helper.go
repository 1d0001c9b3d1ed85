package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/middleware"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/response"
)

// requireSession writes 401 and returns false when no session is attached.
func requireSession(c *gin.Context) (models.Session, bool) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Session{}, false
	}
	return session, true
}

// bindJSON decodes the body into dest, writing 400 on malformed payloads.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func contentTypeFor(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatCSV:
		return "text/csv; charset=utf-8"
	case models.ExportFormatPDF:
		return "application/pdf"
	default:
		return xlsxContentType
	}
}
