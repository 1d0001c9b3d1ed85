package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

const defaultAssignmentGroup = "Nhóm"

type assignmentRepository interface {
	GetAll(ctx context.Context) ([]models.Assignment, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	AppendChecked(ctx context.Context, guard func(existing []models.Assignment) error, records ...models.Assignment) ([]models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

type studentLister interface {
	GetAll(ctx context.Context) ([]models.Student, error)
}

type lecturerLister interface {
	GetAll(ctx context.Context) ([]models.Lecturer, error)
}

// AssignmentRequest proposes placing students in a department for a period.
// Group only feeds the default name.
type AssignmentRequest struct {
	Department    string   `json:"department" validate:"required"`
	SubDepartment string   `json:"subDepartment"`
	StartDate     string   `json:"startDate" validate:"required"`
	EndDate       string   `json:"endDate" validate:"required"`
	StudentIDs    []string `json:"studentIds" validate:"required,min=1"`
	LecturerID    string   `json:"lecturerId"`
	Name          string   `json:"name"`
	Group         string   `json:"group"`
}

// AssignmentStudents pairs an assignment with the students it lists.
type AssignmentStudents struct {
	Assignment models.Assignment `json:"assignment"`
	Students   []models.Student  `json:"students"`
}

// DepartmentOverview groups the assignments of one department.
type DepartmentOverview struct {
	Department  string               `json:"department"`
	Assignments []AssignmentStudents `json:"assignments"`
}

// AssignmentCheckResult is the outcome of a dry-run conflict check.
type AssignmentCheckResult struct {
	OK      bool                     `json:"ok"`
	Summary rotation.ConflictSummary `json:"summary"`
	Message string                   `json:"message,omitempty"`
}

// AssignmentService places students in departments.
type AssignmentService struct {
	repo      assignmentRepository
	students  studentLister
	lecturers lecturerLister
	checker   rotation.ConflictChecker
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, students studentLister, lecturers lecturerLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:      repo,
		students:  students,
		lecturers: lecturers,
		checker:   rotation.NewConflictChecker(),
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns assignments matching the filter, latest start first.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list assignments")
	}
	window, err := optionalRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}

	result := make([]models.Assignment, 0, len(items))
	for _, a := range items {
		if filter.Department != "" && a.Department != filter.Department {
			continue
		}
		if filter.StudentID != "" && !a.HasStudent(filter.StudentID) {
			continue
		}
		if !window.IsZero() && !rotation.AssignmentRange(a).Overlaps(window) {
			continue
		}
		result = append(result, a)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].StartDate > result[j].StartDate })
	return result, nil
}

// Overview groups assignments overlapping the window by department. Without a
// department filter every catalogued department is listed, empty or not.
func (s *AssignmentService) Overview(ctx context.Context, department string, window rotation.DateRange) ([]DepartmentOverview, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list assignments")
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	byID := indexStudents(students)

	depts := models.Departments
	if department != "" {
		depts = []string{department}
	}
	grouped := make(map[string][]AssignmentStudents, len(depts))
	order := append([]string(nil), depts...)
	for _, d := range depts {
		grouped[d] = make([]AssignmentStudents, 0)
	}

	for _, a := range items {
		if department != "" && a.Department != department {
			continue
		}
		if !rotation.AssignmentRange(a).Overlaps(window) {
			continue
		}
		if _, ok := grouped[a.Department]; !ok {
			grouped[a.Department] = make([]AssignmentStudents, 0)
			order = append(order, a.Department)
		}
		members := make([]models.Student, 0, len(a.StudentIDs))
		for _, sid := range a.StudentIDs {
			if st, ok := byID[sid]; ok {
				members = append(members, st)
			}
		}
		grouped[a.Department] = append(grouped[a.Department], AssignmentStudents{Assignment: a, Students: members})
	}

	result := make([]DepartmentOverview, 0, len(order))
	for _, d := range order {
		result = append(result, DepartmentOverview{Department: d, Assignments: grouped[d]})
	}
	return result, nil
}

// Check reports the conflicts the request would cause without committing it.
func (s *AssignmentService) Check(ctx context.Context, req AssignmentRequest) (*AssignmentCheckResult, error) {
	proposal, byID, err := s.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load assignments")
	}
	conflicts := s.checker.Check(proposal, existing)
	summary := rotation.Summarize(conflicts, byID, rotation.ConflictSummaryLimit)
	result := &AssignmentCheckResult{OK: len(conflicts) == 0, Summary: summary}
	if !result.OK {
		result.Message = summary.Message()
	}
	return result, nil
}

// Create commits the assignment when no candidate already belongs to an
// overlapping assignment. The check and the write happen under the
// collection's writer lock.
func (s *AssignmentService) Create(ctx context.Context, req AssignmentRequest) (*models.Assignment, error) {
	proposal, byID, err := s.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		group := strings.TrimSpace(req.Group)
		if group == "" {
			group = defaultAssignmentGroup
		}
		target := req.SubDepartment
		if target == "" {
			target = req.Department
		}
		name = group + " - " + target
	}

	record := models.Assignment{
		Department:    proposal.Department,
		SubDepartment: proposal.SubDepartment,
		StartDate:     proposal.Range.Start,
		EndDate:       proposal.Range.End,
		StudentIDs:    proposal.StudentIDs,
		LecturerID:    req.LecturerID,
		Name:          name,
	}

	var conflictErr *appErrors.Error
	added, err := s.repo.AppendChecked(ctx, func(existing []models.Assignment) error {
		conflicts := s.checker.Check(proposal, existing)
		if len(conflicts) == 0 {
			return nil
		}
		summary := rotation.Summarize(conflicts, byID, rotation.ConflictSummaryLimit)
		conflictErr = appErrors.WithDetails(appErrors.ErrAssignmentConflict, summary.Message(), summary)
		s.metrics.RecordAssignmentConflicts(len(conflicts))
		return conflictErr
	}, record)
	if err != nil {
		if conflictErr != nil && errors.Is(err, appErrors.ErrAssignmentConflict) {
			s.logger.Info("assignment rejected", zap.String("department", record.Department), zap.String("reason", "conflict"))
			return nil, conflictErr
		}
		return nil, storageError(err, "failed to create assignment")
	}

	created := added[0]
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("assignment created",
		zap.String("assignment_id", created.ID),
		zap.String("department", created.Department),
		zap.String("sub_department", created.SubDepartment),
		zap.Int("students", len(created.StudentIDs)),
	)
	return &created, nil
}

// Delete removes an assignment; its derived rotations disappear with it.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "assignment not found", "failed to delete assignment")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("assignment deleted", zap.String("assignment_id", id))
	return nil
}

// prepare validates req and resolves its students. Every listed student must
// exist.
func (s *AssignmentService) prepare(ctx context.Context, req *AssignmentRequest) (rotation.Proposal, map[string]models.Student, error) {
	req.Department = strings.TrimSpace(req.Department)
	req.SubDepartment = strings.TrimSpace(req.SubDepartment)
	req.StudentIDs = uniqueStrings(req.StudentIDs)
	if err := s.validator.Struct(req); err != nil {
		return rotation.Proposal{}, nil, validationError(err, "invalid assignment payload")
	}
	if err := validateDepartment(req.Department, req.SubDepartment); err != nil {
		return rotation.Proposal{}, nil, err
	}
	rng := rotation.NewDateRange(req.StartDate, req.EndDate)
	if err := rng.Validate(); err != nil {
		return rotation.Proposal{}, nil, err
	}

	students, err := s.students.GetAll(ctx)
	if err != nil {
		return rotation.Proposal{}, nil, storageError(err, "failed to load students")
	}
	byID := indexStudents(students)
	missing := make([]string, 0)
	for _, sid := range req.StudentIDs {
		if _, ok := byID[sid]; !ok {
			missing = append(missing, sid)
		}
	}
	if len(missing) > 0 {
		return rotation.Proposal{}, nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown students: "+strings.Join(missing, ", "), missing)
	}

	if req.LecturerID != "" {
		lecturers, err := s.lecturers.GetAll(ctx)
		if err != nil {
			return rotation.Proposal{}, nil, storageError(err, "failed to load lecturers")
		}
		if _, ok := indexLecturers(lecturers)[req.LecturerID]; !ok {
			return rotation.Proposal{}, nil, appErrors.Clone(appErrors.ErrValidation, "unknown lecturer "+req.LecturerID)
		}
	}

	return rotation.Proposal{
		Department:    req.Department,
		SubDepartment: req.SubDepartment,
		Range:         rng,
		StudentIDs:    req.StudentIDs,
	}, byID, nil
}

// optionalRange validates a window where both or neither bound is set.
func optionalRange(start, end string) (rotation.DateRange, error) {
	if start == "" && end == "" {
		return rotation.DateRange{}, nil
	}
	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}
	rng := rotation.NewDateRange(start, end)
	if err := rng.Validate(); err != nil {
		return rotation.DateRange{}, err
	}
	return rng, nil
}
