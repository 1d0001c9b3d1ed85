package dto

import "github.com/noah-isme/clinical-rotation-api/internal/models"

// ExportRequest captures the POST /statistics/exports payload.
type ExportRequest struct {
	Format     models.ExportFormat `json:"format"`
	Department string              `json:"department,omitempty"`
	StartWeek  int                 `json:"startWeek"`
	EndWeek    int                 `json:"endWeek"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	Format    models.ExportFormat `json:"format"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
