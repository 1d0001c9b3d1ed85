package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// Valid reports whether f is a supported export format.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatXLSX || f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob is persisted metadata for an asynchronous statistics export.
type ExportJob struct {
	ID           string          `json:"id"`
	Params       ExportJobParams `json:"params"`
	Status       ExportStatus    `json:"status"`
	Progress     int             `json:"progress"`
	ResultURL    *string         `json:"resultUrl,omitempty"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
}

// ExportJobParams stores the statistics query the job renders.
type ExportJobParams struct {
	Format     ExportFormat `json:"format"`
	StartWeek  int          `json:"startWeek"`
	EndWeek    int          `json:"endWeek"`
	Department string       `json:"department,omitempty"`
}
