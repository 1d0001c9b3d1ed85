package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

// ExportJobRepository persists export job metadata.
type ExportJobRepository struct {
	jobs *Collection[models.ExportJob]
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(docs *DocumentRepository) *ExportJobRepository {
	return &ExportJobRepository{
		jobs: NewCollection(docs, models.KeyExportJobs, func(j *models.ExportJob) *string { return &j.ID }),
	}
}

// Create inserts a new job with generated defaults.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if _, err := r.jobs.Append(ctx, *job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job by its identifier.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	return r.jobs.FindByID(ctx, id)
}

// UpdateExportJobParams defines the mutable fields.
type UpdateExportJobParams struct {
	Status       *models.ExportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job.
func (r *ExportJobRepository) Update(ctx context.Context, id string, params UpdateExportJobParams) error {
	_, err := r.jobs.Update(ctx, id, func(job *models.ExportJob) error {
		if params.Status != nil {
			job.Status = *params.Status
		}
		if params.Progress != nil {
			job.Progress = *params.Progress
		}
		if params.ResultURL != nil {
			job.ResultURL = params.ResultURL
		}
		if params.ErrorMessage != nil {
			job.ErrorMessage = params.ErrorMessage
		}
		if params.FinishedAt != nil {
			job.FinishedAt = params.FinishedAt
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// ListQueued returns jobs still waiting for a worker, oldest first.
func (r *ExportJobRepository) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	all, err := r.jobs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list queued export jobs: %w", err)
	}
	jobs := make([]models.ExportJob, 0)
	for _, job := range all {
		if job.Status == models.ExportStatusQueued {
			jobs = append(jobs, job)
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ExportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	all, err := r.jobs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	jobs := make([]models.ExportJob, 0)
	for _, job := range all {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].FinishedAt.Before(*jobs[j].FinishedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Delete removes a job record.
func (r *ExportJobRepository) Delete(ctx context.Context, id string) error {
	return r.jobs.Delete(ctx, id)
}
