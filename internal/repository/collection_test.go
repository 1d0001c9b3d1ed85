package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

func newMemoryRepositories(t *testing.T) *Repositories {
	t.Helper()
	repos := NewRepositories(NewDocumentRepository(NewMemoryDocumentStore(), 0, nil))
	require.NoError(t, repos.Seed(context.Background(), true))
	return repos
}

func TestSeedCreatesOnlyMissingKeys(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)

	users, err := repos.Users.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "admin", users[0].Username)

	require.NoError(t, repos.Students.Delete(ctx, "s5"))
	require.NoError(t, repos.Seed(ctx, true))

	students, err := repos.Students.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 4)

	assignments, err := repos.Assignments.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestCollectionSaveUpsertsAndAssignsIDs(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)

	plan := &models.TeachingPlan{LecturerID: "l1", Department: "Nội", Date: "2024-03-04", Topic: "ECG"}
	require.NoError(t, repos.TeachingPlans.Save(ctx, plan))
	require.NotEmpty(t, plan.ID)

	plan.Topic = "ECG nâng cao"
	require.NoError(t, repos.TeachingPlans.Save(ctx, plan))

	plans, err := repos.TeachingPlans.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "ECG nâng cao", plans[0].Topic)
}

func TestCollectionFindAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)

	_, err := repos.Lecturers.FindByID(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.True(t, errors.Is(repos.Lecturers.Delete(ctx, "missing"), sql.ErrNoRows))

	lecturer, err := repos.Lecturers.FindByID(ctx, "l2")
	require.NoError(t, err)
	assert.Equal(t, "Ngoại", lecturer.Department)
}

func TestCollectionAppendBumpsVersionOnce(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)
	before := repos.Schedules.Version()

	added, err := repos.Schedules.Append(ctx,
		models.OnCallSchedule{StudentID: "s1", Department: "Nội", Date: "2024-03-11", Shift: models.ShiftMorning},
		models.OnCallSchedule{StudentID: "s2", Department: "Nội", Date: "2024-03-11", Shift: models.ShiftMorning},
	)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotEmpty(t, added[0].ID)
	assert.NotEqual(t, added[0].ID, added[1].ID)
	assert.Equal(t, before+1, repos.Schedules.Version())
}

func TestCollectionUpdate(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)

	updated, err := repos.Students.Update(ctx, "s1", func(s *models.Student) error {
		s.Phone = "0999"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "0999", updated.Phone)

	_, err = repos.Students.Update(ctx, "s2", func(s *models.Student) error {
		s.Phone = "changed"
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	s2, err := repos.Students.FindByID(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "0901234568", s2.Phone)
}

func TestCollectionMalformedPayload(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryDocumentStore()
	require.NoError(t, backend.Store(ctx, models.KeyStudents, []byte(`{"not":"an array"}`)))
	repos := NewRepositories(NewDocumentRepository(backend, 0, nil))

	_, err := repos.Students.GetAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cmp_students")
}

func TestCollectionConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Rotations.Append(ctx, models.ClinicalRotation{StudentID: "s1", MainDepartment: "Nội"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rotations, err := repos.Rotations.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rotations, 20)
}

func TestDocumentRepositoryLatencyHonoursCancellation(t *testing.T) {
	docs := NewDocumentRepository(NewMemoryDocumentStore(), time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := docs.Load(ctx, models.KeyUsers)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportJobRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := newMemoryRepositories(t)

	job := &models.ExportJob{Params: models.ExportJobParams{Format: models.ExportFormatCSV, StartWeek: 1, EndWeek: 4}, CreatedBy: "u1"}
	require.NoError(t, repos.ExportJobs.Create(ctx, job))
	assert.Equal(t, models.ExportStatusQueued, job.Status)

	status := models.ExportStatusFinished
	url := "/api/v1/export/token"
	finished := time.Now().Add(-2 * time.Hour)
	require.NoError(t, repos.ExportJobs.Update(ctx, job.ID, UpdateExportJobParams{Status: &status, ResultURL: &url, FinishedAt: &finished}))

	stored, err := repos.ExportJobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, status, stored.Status)
	require.NotNil(t, stored.ResultURL)

	old, err := repos.ExportJobs.ListFinishedBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, old, 1)

	require.NoError(t, repos.ExportJobs.Delete(ctx, job.ID))
	_, err = repos.ExportJobs.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
