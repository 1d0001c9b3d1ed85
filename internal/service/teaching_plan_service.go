package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type teachingPlanRepository interface {
	GetAll(ctx context.Context) ([]models.TeachingPlan, error)
	FindByID(ctx context.Context, id string) (*models.TeachingPlan, error)
	Save(ctx context.Context, plan *models.TeachingPlan) error
	Delete(ctx context.Context, id string) error
}

type assignmentLister interface {
	GetAll(ctx context.Context) ([]models.Assignment, error)
}

// TeachingPlanRequest is the payload for creating or updating a plan. A plan
// may name a lecturer without linking a lecturer record.
type TeachingPlanRequest struct {
	LecturerID     string `json:"lecturerId"`
	LecturerName   string `json:"lecturerName"`
	Department     string `json:"department" validate:"required"`
	Date           string `json:"date" validate:"required"`
	Topic          string `json:"topic" validate:"required"`
	TargetAudience string `json:"targetAudience"`
	Room           string `json:"room"`
}

// StudentTeachingPlans lists the plans relevant to a student together with
// the departments they were selected by.
type StudentTeachingPlans struct {
	Departments []string              `json:"departments"`
	Plans       []models.TeachingPlan `json:"plans"`
}

// TeachingPlanService manages lecture schedules.
type TeachingPlanService struct {
	repo        teachingPlanRepository
	lecturers   lecturerLister
	assignments assignmentLister
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeachingPlanService constructs the teaching plan service.
func NewTeachingPlanService(repo teachingPlanRepository, lecturers lecturerLister, assignments assignmentLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeachingPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingPlanService{repo: repo, lecturers: lecturers, assignments: assignments, cache: cache, validator: validate, logger: logger}
}

// List returns plans ordered by date.
func (s *TeachingPlanService) List(ctx context.Context, filter models.TeachingPlanFilter) ([]models.TeachingPlan, error) {
	window, err := optionalRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	plans, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list teaching plans")
	}
	result := make([]models.TeachingPlan, 0, len(plans))
	for _, p := range plans {
		if filter.Department != "" && p.Department != filter.Department {
			continue
		}
		if filter.LecturerID != "" && p.LecturerID != filter.LecturerID {
			continue
		}
		if !window.IsZero() && !window.Contains(p.Date) {
			continue
		}
		result = append(result, p)
	}
	sortPlans(result)
	return result, nil
}

// Create records a plan. Lecturer sessions always plan for themselves.
func (s *TeachingPlanService) Create(ctx context.Context, session models.Session, req TeachingPlanRequest) (*models.TeachingPlan, error) {
	plan, err := s.build(ctx, session, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, plan); err != nil {
		return nil, storageError(err, "failed to create teaching plan")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("teaching plan created", zap.String("plan_id", plan.ID), zap.String("lecturer_id", plan.LecturerID), zap.String("date", plan.Date))
	return plan, nil
}

// Update replaces a plan. Lecturers may only change their own plans.
func (s *TeachingPlanService) Update(ctx context.Context, session models.Session, id string, req TeachingPlanRequest) (*models.TeachingPlan, error) {
	if err := s.authorize(ctx, session, id); err != nil {
		return nil, err
	}
	plan, err := s.build(ctx, session, req)
	if err != nil {
		return nil, err
	}
	plan.ID = id
	if err := s.repo.Save(ctx, plan); err != nil {
		return nil, storageError(err, "failed to update teaching plan")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("teaching plan updated", zap.String("plan_id", id))
	return plan, nil
}

// Delete removes a plan. Lecturers may only delete their own plans.
func (s *TeachingPlanService) Delete(ctx context.Context, session models.Session, id string) error {
	if err := s.authorize(ctx, session, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "teaching plan not found", "failed to delete teaching plan")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("teaching plan deleted", zap.String("plan_id", id))
	return nil
}

// ForStudent returns plans held in the departments the student is assigned
// to. With a window, only assignments overlapping it and plans inside it count.
func (s *TeachingPlanService) ForStudent(ctx context.Context, session models.Session, studentID, start, end string) (*StudentTeachingPlans, error) {
	if err := ensureStudentAccess(session, studentID); err != nil {
		return nil, err
	}
	window, err := optionalRange(start, end)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load assignments")
	}
	plans, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load teaching plans")
	}
	return plansForStudent(studentID, window, assignments, plans), nil
}

func plansForStudent(studentID string, window rotation.DateRange, assignments []models.Assignment, plans []models.TeachingPlan) *StudentTeachingPlans {
	depts := make(map[string]struct{})
	for _, a := range assignments {
		if !a.HasStudent(studentID) {
			continue
		}
		if !window.IsZero() && !rotation.AssignmentRange(a).Overlaps(window) {
			continue
		}
		depts[a.Department] = struct{}{}
	}

	result := &StudentTeachingPlans{Departments: make([]string, 0, len(depts)), Plans: make([]models.TeachingPlan, 0)}
	for d := range depts {
		result.Departments = append(result.Departments, d)
	}
	departmentOrder(result.Departments)

	for _, p := range plans {
		if _, ok := depts[p.Department]; !ok {
			continue
		}
		if !window.IsZero() && !window.Contains(p.Date) {
			continue
		}
		result.Plans = append(result.Plans, p)
	}
	sortPlans(result.Plans)
	return result
}

func (s *TeachingPlanService) authorize(ctx context.Context, session models.Session, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "teaching plan not found", "failed to load teaching plan")
	}
	if session.Role == models.RoleLecturer && current.LecturerID != session.RelatedID {
		return appErrors.Clone(appErrors.ErrForbidden, "lecturers may only change their own teaching plans")
	}
	return nil
}

func (s *TeachingPlanService) build(ctx context.Context, session models.Session, req TeachingPlanRequest) (*models.TeachingPlan, error) {
	req.Department = models.NormalizeDepartment(req.Department)
	req.Topic = strings.TrimSpace(req.Topic)
	req.LecturerName = strings.TrimSpace(req.LecturerName)
	if session.Role == models.RoleLecturer {
		req.LecturerID = session.RelatedID
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teaching plan payload")
	}
	if err := validateDepartment(req.Department, ""); err != nil {
		return nil, err
	}
	if _, err := rotation.ParseDate(req.Date); err != nil {
		return nil, validationError(err, "invalid date")
	}

	if req.LecturerID != "" {
		lecturers, err := s.lecturers.GetAll(ctx)
		if err != nil {
			return nil, storageError(err, "failed to load lecturers")
		}
		lecturer, ok := indexLecturers(lecturers)[req.LecturerID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown lecturer "+req.LecturerID)
		}
		if req.LecturerName == "" {
			req.LecturerName = lecturer.FullName
		}
	}
	if req.LecturerName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecturer name is required")
	}

	return &models.TeachingPlan{
		LecturerID:     req.LecturerID,
		LecturerName:   req.LecturerName,
		Department:     req.Department,
		Date:           req.Date,
		Topic:          req.Topic,
		TargetAudience: strings.TrimSpace(req.TargetAudience),
		Room:           strings.TrimSpace(req.Room),
	}, nil
}

func sortPlans(plans []models.TeachingPlan) {
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Date < plans[j].Date })
}
