package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/dto"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

const studentDashboardDays = 14

type onCallLister interface {
	GetAll(ctx context.Context) ([]models.OnCallSchedule, error)
}

type rotationLoader interface {
	Load(ctx context.Context) (*rotation.AssignmentIndex, *rotation.RotationIndex, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the admin summary and the student overview.
type DashboardService struct {
	students  studentLister
	lecturers lecturerLister
	views     rotationLoader
	schedules onCallLister
	plans     teachingPlanLister
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students  studentLister
	Lecturers lecturerLister
	Views     rotationLoader
	Schedules onCallLister
	Plans     teachingPlanLister
	Cache     *CacheService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:  params.Students,
		lecturers: params.Lecturers,
		views:     params.Views,
		schedules: params.Schedules,
		plans:     params.Plans,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Admin returns today's totals and indicates whether the cache served them.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	today := rotation.FormatDate(s.now())
	cacheKey := fmt.Sprintf("dashboard:admin:%s", today)
	var cached dto.AdminDashboardResponse
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	summary, err := s.composeAdminSummary(ctx, today)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Student returns the overview of studentID for the current and next week.
func (s *DashboardService) Student(ctx context.Context, session models.Session, studentID string) (*dto.StudentDashboardResponse, bool, error) {
	if err := ensureStudentAccess(session, studentID); err != nil {
		return nil, false, err
	}
	start := rotation.StartOfWeek(s.now())
	window := rotation.NewDateRange(rotation.FormatDate(start), rotation.FormatDate(start.AddDate(0, 0, studentDashboardDays-1)))

	cacheKey := fmt.Sprintf("dashboard:student:%s:%s", studentID, window.Start)
	var cached dto.StudentDashboardResponse
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	overview, err := s.composeStudentOverview(ctx, studentID, window)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, overview)
	return overview, false, nil
}

// tryCache treats cache failures as misses so dashboards stay available.
func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) composeAdminSummary(ctx context.Context, today string) (*dto.AdminDashboardResponse, error) {
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	lecturers, err := s.lecturers.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load lecturers")
	}
	assignments, _, err := s.views.Load(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load assignments")
	}
	schedules, err := s.schedules.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load on-call schedules")
	}

	summary := &dto.AdminDashboardResponse{
		Date:           today,
		TotalStudents:  len(students),
		TotalLecturers: len(lecturers),
		Departments:    make([]dto.DepartmentActivity, 0, len(models.Departments)),
	}
	for _, a := range assignments.All() {
		if rotation.AssignmentRange(a).Contains(today) {
			summary.ActiveAssignments++
		}
	}
	for _, sc := range schedules {
		if sc.Date == today {
			summary.ShiftsToday++
		}
	}
	for _, dept := range models.Departments {
		summary.Departments = append(summary.Departments, dto.DepartmentActivity{
			Department:     dept,
			ActiveStudents: len(assignments.StudentsAssignedTo(dept, today)),
		})
	}
	return summary, nil
}

func (s *DashboardService) composeStudentOverview(ctx context.Context, studentID string, window rotation.DateRange) (*dto.StudentDashboardResponse, error) {
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	student, ok := indexStudents(students)[studentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	assignments, rotations, err := s.views.Load(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load rotations")
	}
	schedules, err := s.schedules.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load on-call schedules")
	}
	plans, err := s.plans.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load teaching plans")
	}

	overview := &dto.StudentDashboardResponse{
		Student:       student,
		WindowStart:   window.Start,
		WindowEnd:     window.End,
		Assignments:   make([]models.Assignment, 0),
		Rotations:     make([]models.ClinicalRotation, 0),
		OnCall:        make([]models.OnCallSchedule, 0),
		TeachingPlans: plansForStudent(studentID, window, assignments.All(), plans).Plans,
		Placements:    make([]dto.Placement, 0),
	}
	for _, a := range assignments.CoveringStudent(studentID) {
		if rotation.AssignmentRange(a).Overlaps(window) {
			overview.Assignments = append(overview.Assignments, a)
		}
	}
	sort.SliceStable(overview.Assignments, func(i, j int) bool {
		return overview.Assignments[i].StartDate < overview.Assignments[j].StartDate
	})
	placed := make(map[string]struct{})
	for _, a := range overview.Assignments {
		if _, ok := placed[a.Department]; ok {
			continue
		}
		placed[a.Department] = struct{}{}
		if sub, ok := rotations.CurrentSubDepartment(studentID, a.Department, window); ok {
			overview.Placements = append(overview.Placements, dto.Placement{Department: a.Department, SubDepartment: sub})
		}
	}
	for _, r := range rotations.ForStudent(studentID) {
		if rotation.RotationRange(r).Overlaps(window) {
			overview.Rotations = append(overview.Rotations, r)
		}
	}
	for _, sc := range schedules {
		if sc.StudentID == studentID && window.Contains(sc.Date) {
			overview.OnCall = append(overview.OnCall, sc)
		}
	}
	sort.SliceStable(overview.OnCall, func(i, j int) bool { return scheduleLess(overview.OnCall[i], overview.OnCall[j]) })
	return overview, nil
}
