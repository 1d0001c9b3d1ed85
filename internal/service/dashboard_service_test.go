package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/dto"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/repository"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func newDashboardFixture(t *testing.T, cache *CacheService) (*DashboardService, *repository.Repositories) {
	t.Helper()
	repos := newTestRepositories(t)
	ctx := context.Background()
	seedAssignments(t, repos,
		models.Assignment{ID: "a1", Department: "Nội", SubDepartment: "Nội Tim mạch", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s1", "s2"}},
		models.Assignment{ID: "a2", Department: "Ngoại", StartDate: "2024-04-01", EndDate: "2024-04-30", StudentIDs: []string{"s1"}},
		models.Assignment{ID: "a3", Department: "Nhi", StartDate: "2024-03-10", EndDate: "2024-03-20", StudentIDs: []string{"s3"}},
	)
	_, err := repos.Schedules.Append(ctx,
		models.OnCallSchedule{ID: "oc2", StudentID: "s1", Department: "Nội", Date: "2024-03-13", Shift: models.ShiftEvening},
		models.OnCallSchedule{ID: "oc1", StudentID: "s1", Department: "Nội", Date: "2024-03-13", Shift: models.ShiftMorning},
		models.OnCallSchedule{ID: "oc3", StudentID: "s2", Department: "Nội", Date: "2024-03-14", Shift: models.ShiftMorning},
		models.OnCallSchedule{ID: "oc4", StudentID: "s1", Department: "Nội", Date: "2024-03-28", Shift: models.ShiftMorning},
	)
	require.NoError(t, err)
	_, err = repos.TeachingPlans.Append(ctx,
		models.TeachingPlan{ID: "p1", LecturerID: "l1", Department: "Nội", Date: "2024-03-20", Topic: "ECG"},
		models.TeachingPlan{ID: "p2", LecturerID: "l2", Department: "Ngoại", Date: "2024-03-12", Topic: "Khâu"},
		models.TeachingPlan{ID: "p3", LecturerID: "l1", Department: "Nội", Date: "2024-03-25", Topic: "Ngoài cửa sổ"},
	)
	require.NoError(t, err)

	svc := NewDashboardService(DashboardServiceParams{
		Students:  repos.Students,
		Lecturers: repos.Lecturers,
		Views:     NewRotationViews(repos.Assignments, repos.Rotations),
		Schedules: repos.Schedules,
		Plans:     repos.TeachingPlans,
		Cache:     cache,
		Logger:    zap.NewNop(),
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC) }
	return svc, repos
}

func TestDashboardServiceAdminSummary(t *testing.T) {
	svc, _ := newDashboardFixture(t, nil)

	summary, hit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2024-03-13", summary.Date)
	assert.Equal(t, 5, summary.TotalStudents)
	assert.Equal(t, 2, summary.TotalLecturers)
	assert.Equal(t, 2, summary.ActiveAssignments)
	assert.Equal(t, 2, summary.ShiftsToday)
	require.Len(t, summary.Departments, len(models.Departments))

	active := map[string]int{}
	for _, d := range summary.Departments {
		active[d.Department] = d.ActiveStudents
	}
	assert.Equal(t, 2, active["Nội"])
	assert.Equal(t, 1, active["Nhi"])
	assert.Equal(t, 0, active["Ngoại"])
}

func TestDashboardServiceStudentOverview(t *testing.T) {
	svc, _ := newDashboardFixture(t, nil)

	overview, _, err := svc.Student(context.Background(), studentSession("s1"), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Y2020001", overview.Student.StudentCode)
	assert.Equal(t, "2024-03-11", overview.WindowStart)
	assert.Equal(t, "2024-03-24", overview.WindowEnd)

	require.Len(t, overview.Assignments, 1)
	assert.Equal(t, "a1", overview.Assignments[0].ID)

	require.Len(t, overview.Rotations, 1)
	assert.Equal(t, "Nội Tim mạch", overview.Rotations[0].SubDepartment)

	require.Len(t, overview.OnCall, 2)
	assert.Equal(t, "oc1", overview.OnCall[0].ID)
	assert.Equal(t, "oc2", overview.OnCall[1].ID)

	require.Len(t, overview.TeachingPlans, 1)
	assert.Equal(t, "p1", overview.TeachingPlans[0].ID)

	assert.Equal(t, []dto.Placement{{Department: "Nội", SubDepartment: "Nội Tim mạch"}}, overview.Placements)
}

func TestDashboardServiceStudentPlacementPrefersManualRotation(t *testing.T) {
	svc, repos := newDashboardFixture(t, nil)
	ctx := context.Background()
	_, err := repos.Rotations.Append(ctx, models.ClinicalRotation{ID: "r1", StudentID: "s1", MainDepartment: "Nội", SubDepartment: "Nội Hô hấp", StartDate: "2024-03-20", EndDate: "2024-03-27"})
	require.NoError(t, err)

	overview, _, err := svc.Student(ctx, studentSession("s1"), "s1")
	require.NoError(t, err)
	assert.Equal(t, []dto.Placement{{Department: "Nội", SubDepartment: "Nội Hô hấp"}}, overview.Placements)

	overview, _, err = svc.Student(ctx, adminSession(), "s3")
	require.NoError(t, err)
	assert.Empty(t, overview.Placements)
}

func TestDashboardServiceStudentAccess(t *testing.T) {
	svc, _ := newDashboardFixture(t, nil)
	ctx := context.Background()

	_, _, err := svc.Student(ctx, studentSession("s1"), "s2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = svc.Student(ctx, adminSession(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDashboardServiceCachesUntilInvalidated(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc, repos := newDashboardFixture(t, cacheSvc)
	ctx := context.Background()

	first, hit, err := svc.Student(ctx, adminSession(), "s1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, cacheRepo.store, "dashboard:student:s1:2024-03-11")

	cached, hit, err := svc.Student(ctx, adminSession(), "s1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, cached)

	onCall := NewOnCallService(repos.Schedules, NewRotationViews(repos.Assignments, repos.Rotations), repos.Students, cacheSvc, nil, nil)
	require.NoError(t, onCall.Delete(ctx, "oc1"))
	assert.Empty(t, cacheRepo.store)

	fresh, hit, err := svc.Student(ctx, adminSession(), "s1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, fresh.OnCall, 1)
}
