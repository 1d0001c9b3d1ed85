package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type onCallRepository interface {
	GetAll(ctx context.Context) ([]models.OnCallSchedule, error)
	FindByID(ctx context.Context, id string) (*models.OnCallSchedule, error)
	AppendChecked(ctx context.Context, guard func(existing []models.OnCallSchedule) error, records ...models.OnCallSchedule) ([]models.OnCallSchedule, error)
	Update(ctx context.Context, id string, fn func(*models.OnCallSchedule) error) (*models.OnCallSchedule, error)
	Delete(ctx context.Context, id string) error
}

// OnCallRequest schedules students for one or more shifts of a day.
type OnCallRequest struct {
	Department string             `json:"department" validate:"required"`
	Date       string             `json:"date" validate:"required"`
	Shifts     []models.ShiftTime `json:"shifts" validate:"required,min=1"`
	StudentIDs []string           `json:"studentIds" validate:"required,min=1"`
	Note       string             `json:"note"`
}

// CheckInRequest carries the coordinates captured by the client.
type CheckInRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// OnCallView decorates a shift with its student and hours.
type OnCallView struct {
	models.OnCallSchedule
	StudentCode string `json:"studentCode"`
	StudentName string `json:"studentName"`
	Hours       string `json:"hours"`
}

// OnCallService schedules on-call shifts and records check-ins.
type OnCallService struct {
	repo      onCallRepository
	views     *RotationViews
	students  studentLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewOnCallService constructs the on-call service.
func NewOnCallService(repo onCallRepository, views *RotationViews, students studentLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *OnCallService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnCallService{repo: repo, views: views, students: students, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// List returns shifts matching the filter ordered by date and shift. Shifts of
// unknown students are skipped.
func (s *OnCallService) List(ctx context.Context, session models.Session, filter models.OnCallFilter) ([]OnCallView, error) {
	dept, err := scopeDepartment(session, filter.Department)
	if err != nil {
		return nil, err
	}
	window, err := optionalRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	schedules, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list on-call schedules")
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	byID := indexStudents(students)

	result := make([]OnCallView, 0, len(schedules))
	for _, sc := range schedules {
		if dept != "" && sc.Department != dept {
			continue
		}
		if filter.StudentID != "" && sc.StudentID != filter.StudentID {
			continue
		}
		if !window.IsZero() && !window.Contains(sc.Date) {
			continue
		}
		st, ok := byID[sc.StudentID]
		if !ok {
			continue
		}
		result = append(result, OnCallView{OnCallSchedule: sc, StudentCode: st.StudentCode, StudentName: st.FullName, Hours: sc.Shift.Hours()})
	}
	sort.SliceStable(result, func(i, j int) bool { return scheduleLess(result[i].OnCallSchedule, result[j].OnCallSchedule) })
	return result, nil
}

// Available lists students who can take a shift in the department on date.
func (s *OnCallService) Available(ctx context.Context, session models.Session, department, date string, cohort models.CohortFilter) ([]models.Student, error) {
	dept, err := scopeDepartment(session, department)
	if err != nil {
		return nil, err
	}
	if err := validateDepartment(dept, ""); err != nil {
		return nil, err
	}
	if _, err := rotation.ParseDate(date); err != nil {
		return nil, validationError(err, "invalid date")
	}
	assignments, _, err := s.views.Load(ctx)
	if err != nil {
		return nil, err
	}
	schedules, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load on-call schedules")
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	filter := rotation.NewEligibilityFilter(assignments, nil, schedules)
	eligible, err := filter.OnCall(students, rotation.OnCallCriteria{Department: dept, Date: date, Cohort: cohort})
	if err != nil {
		return nil, validationError(err, "invalid date")
	}
	return eligible, nil
}

// Create schedules every student for every requested shift. Any ineligible
// student aborts the whole request.
func (s *OnCallService) Create(ctx context.Context, session models.Session, req OnCallRequest) ([]models.OnCallSchedule, error) {
	req.Department = strings.TrimSpace(req.Department)
	req.StudentIDs = uniqueStrings(req.StudentIDs)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid on-call payload")
	}
	dept, err := scopeDepartment(session, req.Department)
	if err != nil {
		return nil, err
	}
	if err := validateDepartment(dept, ""); err != nil {
		return nil, err
	}
	if _, err := rotation.ParseDate(req.Date); err != nil {
		return nil, validationError(err, "invalid date")
	}
	shifts, err := normalizeShifts(req.Shifts)
	if err != nil {
		return nil, err
	}

	assignments, _, err := s.views.Load(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}

	records := make([]models.OnCallSchedule, 0, len(req.StudentIDs)*len(shifts))
	for _, sid := range req.StudentIDs {
		for _, shift := range shifts {
			records = append(records, models.OnCallSchedule{
				StudentID:  sid,
				Department: dept,
				Date:       req.Date,
				Shift:      shift,
				Status:     models.AttendancePresent,
				Note:       req.Note,
			})
		}
	}

	var rejected *appErrors.Error
	added, err := s.repo.AppendChecked(ctx, func(existing []models.OnCallSchedule) error {
		filter := rotation.NewEligibilityFilter(assignments, nil, existing)
		eligible, err := filter.OnCall(students, rotation.OnCallCriteria{Department: dept, Date: req.Date})
		if err != nil {
			return err
		}
		allowed := make(map[string]struct{}, len(eligible))
		for _, st := range eligible {
			allowed[st.ID] = struct{}{}
		}
		ineligible := make([]string, 0)
		for _, sid := range req.StudentIDs {
			if _, ok := allowed[sid]; !ok {
				ineligible = append(ineligible, sid)
			}
		}
		if len(ineligible) == 0 {
			return nil
		}
		rejected = appErrors.WithDetails(appErrors.ErrValidation, "students not eligible for on-call duty: "+strings.Join(ineligible, ", "), ineligible)
		return rejected
	}, records...)
	if err != nil {
		if rejected != nil && errors.Is(err, appErrors.ErrValidation) {
			return nil, rejected
		}
		return nil, storageError(err, "failed to create on-call schedules")
	}

	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("on-call scheduled",
		zap.String("department", dept),
		zap.String("date", req.Date),
		zap.Int("students", len(req.StudentIDs)),
		zap.Int("shifts", len(added)),
	)
	return added, nil
}

// ForStudent returns a student's shifts ordered by date and shift.
func (s *OnCallService) ForStudent(ctx context.Context, session models.Session, studentID string) ([]models.OnCallSchedule, error) {
	if err := ensureStudentAccess(session, studentID); err != nil {
		return nil, err
	}
	schedules, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load on-call schedules")
	}
	result := make([]models.OnCallSchedule, 0)
	for _, sc := range schedules {
		if sc.StudentID == studentID {
			result = append(result, sc)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return scheduleLess(result[i], result[j]) })
	return result, nil
}

// CheckIn records the time and place of arrival for a shift. Students may
// only check in to their own shifts, once.
func (s *OnCallService) CheckIn(ctx context.Context, session models.Session, id string, req CheckInRequest) (*models.OnCallSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid coordinates")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "on-call schedule not found", "failed to load on-call schedule")
	}
	if err := ensureStudentAccess(session, current.StudentID); err != nil {
		return nil, err
	}

	checkedAt := s.now().UTC()
	updated, err := s.repo.Update(ctx, id, func(sc *models.OnCallSchedule) error {
		if sc.CheckedIn() {
			return appErrors.Clone(appErrors.ErrConflict, "shift already checked in")
		}
		sc.CheckInTime = &checkedAt
		sc.Latitude = req.Latitude
		sc.Longitude = req.Longitude
		sc.Status = models.AttendancePresent
		return nil
	})
	if err != nil {
		return nil, lookupError(err, "on-call schedule not found", "failed to check in")
	}

	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("on-call check-in", zap.String("schedule_id", id), zap.String("student_id", updated.StudentID), zap.Time("at", checkedAt))
	return updated, nil
}

// Delete removes a shift.
func (s *OnCallService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "on-call schedule not found", "failed to delete on-call schedule")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("on-call deleted", zap.String("schedule_id", id))
	return nil
}

func normalizeShifts(shifts []models.ShiftTime) ([]models.ShiftTime, error) {
	requested := make(map[models.ShiftTime]struct{}, len(shifts))
	for _, sh := range shifts {
		if !sh.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift "+string(sh))
		}
		requested[sh] = struct{}{}
	}
	result := make([]models.ShiftTime, 0, len(requested))
	for _, sh := range models.Shifts {
		if _, ok := requested[sh]; ok {
			result = append(result, sh)
		}
	}
	return result, nil
}

func shiftRank(s models.ShiftTime) int {
	for i, sh := range models.Shifts {
		if sh == s {
			return i
		}
	}
	return len(models.Shifts)
}

func scheduleLess(a, b models.OnCallSchedule) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return shiftRank(a.Shift) < shiftRank(b.Shift)
}
