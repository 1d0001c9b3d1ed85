package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

func TestTeachingPlanServiceOwnership(t *testing.T) {
	repos := newTestRepositories(t)
	svc := NewTeachingPlanService(repos.TeachingPlans, repos.Lecturers, repos.Assignments, nil, nil, nil)
	ctx := context.Background()

	mine, err := svc.Create(ctx, lecturerSession(""), TeachingPlanRequest{LecturerID: "l2", Department: "nội", Date: "2024-03-12", Topic: "Suy tim"})
	require.NoError(t, err)
	assert.Equal(t, "l1", mine.LecturerID)
	assert.Equal(t, "BS. Nguyễn Văn A", mine.LecturerName)
	assert.Equal(t, "Nội", mine.Department)

	theirs, err := svc.Create(ctx, adminSession(), TeachingPlanRequest{LecturerID: "l2", Department: "Ngoại", Date: "2024-03-13", Topic: "Viêm ruột thừa"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, lecturerSession(""), theirs.ID, TeachingPlanRequest{Department: "Ngoại", Date: "2024-03-13", Topic: "x"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, lecturerSession(""), theirs.ID), appErrors.ErrForbidden)

	updated, err := svc.Update(ctx, lecturerSession(""), mine.ID, TeachingPlanRequest{Department: "Nội", Date: "2024-03-14", Topic: "Suy tim mạn", Room: "P101"})
	require.NoError(t, err)
	assert.Equal(t, "P101", updated.Room)

	_, err = svc.Create(ctx, adminSession(), TeachingPlanRequest{Department: "Nội", Date: "2024-03-14", Topic: "x"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	manual, err := svc.Create(ctx, adminSession(), TeachingPlanRequest{LecturerName: "ThS. Khách mời", Department: "Nội", Date: "2024-03-15", Topic: "Điện tâm đồ"})
	require.NoError(t, err)
	assert.Empty(t, manual.LecturerID)

	require.NoError(t, svc.Delete(ctx, adminSession(), theirs.ID))
	assert.ErrorIs(t, svc.Delete(ctx, adminSession(), theirs.ID), appErrors.ErrNotFound)
}

func TestTeachingPlanServiceForStudent(t *testing.T) {
	repos := newTestRepositories(t)
	seedAssignments(t, repos,
		models.Assignment{ID: "a1", Department: "Nội", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s1"}},
		models.Assignment{ID: "a2", Department: "Ngoại", StartDate: "2024-04-01", EndDate: "2024-04-30", StudentIDs: []string{"s1"}},
	)
	_, err := repos.TeachingPlans.Append(context.Background(),
		models.TeachingPlan{ID: "p2", LecturerName: "A", Department: "Nội", Date: "2024-03-20", Topic: "B"},
		models.TeachingPlan{ID: "p1", LecturerName: "A", Department: "Nội", Date: "2024-03-05", Topic: "A"},
		models.TeachingPlan{ID: "p3", LecturerName: "D", Department: "Ngoại", Date: "2024-04-02", Topic: "C"},
		models.TeachingPlan{ID: "p4", LecturerName: "E", Department: "Nhi", Date: "2024-03-05", Topic: "D"},
	)
	require.NoError(t, err)
	svc := NewTeachingPlanService(repos.TeachingPlans, repos.Lecturers, repos.Assignments, nil, nil, nil)
	ctx := context.Background()

	all, err := svc.ForStudent(ctx, studentSession("s1"), "s1", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nội", "Ngoại"}, all.Departments)
	require.Len(t, all.Plans, 3)
	assert.Equal(t, "p1", all.Plans[0].ID)

	march, err := svc.ForStudent(ctx, studentSession("s1"), "s1", "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nội"}, march.Departments)
	assert.Len(t, march.Plans, 2)

	_, err = svc.ForStudent(ctx, studentSession("s2"), "s1", "", "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
