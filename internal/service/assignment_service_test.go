package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

func newAssignmentService(t *testing.T) (*AssignmentService, func() []models.Assignment) {
	t.Helper()
	repos := newTestRepositories(t)
	svc := NewAssignmentService(repos.Assignments, repos.Students, repos.Lecturers, nil, NewMetricsService(), nil, nil)
	all := func() []models.Assignment {
		items, err := repos.Assignments.GetAll(context.Background())
		require.NoError(t, err)
		return items
	}
	return svc, all
}

func TestAssignmentServiceCreateBuildsDefaultName(t *testing.T) {
	svc, _ := newAssignmentService(t)

	created, err := svc.Create(context.Background(), AssignmentRequest{
		Department: "Nội", SubDepartment: "Nội Tim mạch",
		StartDate: "2024-01-01", EndDate: "2024-01-31",
		StudentIDs: []string{"s1", "s2", "s1"}, Group: "Nhom1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Nhom1 - Nội Tim mạch", created.Name)
	assert.Equal(t, []string{"s1", "s2"}, created.StudentIDs)

	created, err = svc.Create(context.Background(), AssignmentRequest{
		Department: "Ngoại", StartDate: "2024-02-01", EndDate: "2024-02-28", StudentIDs: []string{"s3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Nhóm - Ngoại", created.Name)
}

func TestAssignmentServiceRejectsOverlapInAnyDepartment(t *testing.T) {
	svc, all := newAssignmentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, AssignmentRequest{Department: "Nội", StartDate: "2024-01-01", EndDate: "2024-01-31", StudentIDs: []string{"s1"}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, AssignmentRequest{Department: "Ngoại", StartDate: "2024-01-31", EndDate: "2024-02-15", StudentIDs: []string{"s2", "s1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrAssignmentConflict)

	appErr := appErrors.FromError(err)
	summary, ok := appErr.Details.(rotation.ConflictSummary)
	require.True(t, ok)
	require.Len(t, summary.Conflicts, 1)
	assert.Equal(t, "Y2020001", summary.Conflicts[0].StudentCode)
	assert.Equal(t, "Nội", summary.Conflicts[0].Department)
	assert.Contains(t, appErr.Message, "Trần Thị B (Y2020001): in Nội (2024-01-01 -> 2024-01-31)")
	assert.Len(t, all(), 1)

	_, err = svc.Create(ctx, AssignmentRequest{Department: "Ngoại", StartDate: "2024-02-01", EndDate: "2024-02-15", StudentIDs: []string{"s1"}})
	require.NoError(t, err)
	assert.Len(t, all(), 2)
}

func TestAssignmentServiceDetectsCommittedAssignmentOnRetry(t *testing.T) {
	svc, _ := newAssignmentService(t)
	ctx := context.Background()
	req := AssignmentRequest{Department: "Sản", StartDate: "2024-03-01", EndDate: "2024-03-10", StudentIDs: []string{"s4"}}

	check, err := svc.Check(ctx, req)
	require.NoError(t, err)
	assert.True(t, check.OK)

	_, err = svc.Create(ctx, req)
	require.NoError(t, err)

	check, err = svc.Check(ctx, req)
	require.NoError(t, err)
	assert.False(t, check.OK)
	assert.Equal(t, 1, check.Summary.Total)

	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrAssignmentConflict)
}

func TestAssignmentServiceConcurrentCreatesCommitOnce(t *testing.T) {
	svc, all := newAssignmentService(t)
	req := AssignmentRequest{Department: "Nhi", StartDate: "2024-04-01", EndDate: "2024-04-30", StudentIDs: []string{"s5"}}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrAssignmentConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, all(), 1)
}

func TestAssignmentServiceValidation(t *testing.T) {
	svc, all := newAssignmentService(t)
	ctx := context.Background()

	cases := []AssignmentRequest{
		{Department: "Nội", StartDate: "2024-01-10", EndDate: "2024-01-01", StudentIDs: []string{"s1"}},
		{Department: "Khoa X", StartDate: "2024-01-01", EndDate: "2024-01-10", StudentIDs: []string{"s1"}},
		{Department: "Nội", SubDepartment: "ICU A", StartDate: "2024-01-01", EndDate: "2024-01-10", StudentIDs: []string{"s1"}},
		{Department: "Nội", StartDate: "2024-01-01", EndDate: "2024-01-10"},
		{Department: "Nội", StartDate: "2024-01-01", EndDate: "2024-01-10", StudentIDs: []string{"s1", "ghost"}},
		{Department: "Nội", StartDate: "2024-01-01", EndDate: "2024-01-10", StudentIDs: []string{"s1"}, LecturerID: "l9"},
	}
	for i, req := range cases {
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, appErrors.ErrValidation, "case %d", i)
	}
	assert.Empty(t, all())
}

func TestAssignmentServiceConflictSummaryIsCapped(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	students := make([]models.Student, 0, 12)
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("bulk%02d", i)
		students = append(students, models.Student{ID: id, StudentCode: fmt.Sprintf("B%02d", i), FullName: "SV " + id, Major: models.MajorNursing, AcademicYear: 1})
		ids = append(ids, id)
	}
	_, err := repos.Students.Append(ctx, students...)
	require.NoError(t, err)

	svc := NewAssignmentService(repos.Assignments, repos.Students, repos.Lecturers, nil, nil, nil, nil)
	_, err = svc.Create(ctx, AssignmentRequest{Department: "Mắt", StartDate: "2024-05-01", EndDate: "2024-05-31", StudentIDs: ids})
	require.NoError(t, err)

	_, err = svc.Create(ctx, AssignmentRequest{Department: "Nhiễm", StartDate: "2024-05-15", EndDate: "2024-06-15", StudentIDs: ids})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	summary := appErr.Details.(rotation.ConflictSummary)
	assert.Equal(t, 12, summary.Total)
	assert.Len(t, summary.Conflicts, 10)
	assert.Equal(t, 2, summary.Remaining)
	assert.Contains(t, appErr.Message, "... and 2 more student(s)")
}

func TestAssignmentServiceOverviewAndList(t *testing.T) {
	repos := newTestRepositories(t)
	seedAssignments(t, repos,
		models.Assignment{ID: "a1", Department: "Nội", StartDate: "2024-01-01", EndDate: "2024-01-31", StudentIDs: []string{"s1", "ghost"}},
		models.Assignment{ID: "a2", Department: "Ngoại", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s2"}},
	)
	svc := NewAssignmentService(repos.Assignments, repos.Students, repos.Lecturers, nil, nil, nil, nil)
	ctx := context.Background()

	overview, err := svc.Overview(ctx, "", rotation.NewDateRange("2024-01-15", "2024-02-15"))
	require.NoError(t, err)
	assert.Len(t, overview, len(models.Departments))
	assert.Equal(t, "Nội", overview[0].Department)
	require.Len(t, overview[0].Assignments, 1)
	assert.Len(t, overview[0].Assignments[0].Students, 1)
	assert.Empty(t, overview[1].Assignments)

	list, err := svc.List(ctx, models.AssignmentFilter{StudentID: "s2"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)

	list, err = svc.List(ctx, models.AssignmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, "a2", list[0].ID)

	require.NoError(t, svc.Delete(ctx, "a1"))
	assert.ErrorIs(t, svc.Delete(ctx, "a1"), appErrors.ErrNotFound)
}
