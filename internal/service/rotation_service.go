package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type rotationRepository interface {
	AppendChecked(ctx context.Context, guard func(existing []models.ClinicalRotation) error, records ...models.ClinicalRotation) ([]models.ClinicalRotation, error)
	Delete(ctx context.Context, id string) error
}

// RotationRequest sub-assigns students of a main department to a unit.
type RotationRequest struct {
	MainDepartment string   `json:"mainDepartment" validate:"required"`
	SubDepartment  string   `json:"subDepartment" validate:"required"`
	StartDate      string   `json:"startDate" validate:"required"`
	EndDate        string   `json:"endDate" validate:"required"`
	StudentIDs     []string `json:"studentIds" validate:"required,min=1"`
}

// RotationView decorates a rotation with its student.
type RotationView struct {
	models.ClinicalRotation
	StudentCode string `json:"studentCode"`
	StudentName string `json:"studentName"`
	Synthetic   bool   `json:"synthetic"`
}

// RotationService manages sub-department rotations.
type RotationService struct {
	repo      rotationRepository
	views     *RotationViews
	students  studentLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRotationService constructs the rotation service.
func NewRotationService(repo rotationRepository, views *RotationViews, students studentLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RotationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RotationService{repo: repo, views: views, students: students, cache: cache, validator: validate, logger: logger}
}

// List returns the combined rotation view, scoped by the session department.
// Rotations of unknown students are skipped.
func (s *RotationService) List(ctx context.Context, session models.Session, department string) ([]RotationView, error) {
	dept, err := scopeDepartment(session, department)
	if err != nil {
		return nil, err
	}
	_, index, err := s.views.Load(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	byID := indexStudents(students)

	source := index.Combined()
	if dept != "" {
		source = index.ForMainDepartment(dept)
	}
	result := make([]RotationView, 0, len(source))
	for _, r := range source {
		st, ok := byID[r.StudentID]
		if !ok {
			continue
		}
		result = append(result, RotationView{
			ClinicalRotation: r,
			StudentCode:      st.StudentCode,
			StudentName:      st.FullName,
			Synthetic:        rotation.IsSynthetic(r.ID),
		})
	}
	return result, nil
}

// Available lists students eligible for a sub-rotation in the main
// department. start and end are optional but must be given together.
func (s *RotationService) Available(ctx context.Context, session models.Session, mainDepartment, start, end string) ([]models.Student, error) {
	dept, err := scopeDepartment(session, mainDepartment)
	if err != nil {
		return nil, err
	}
	if err := validateDepartment(dept, ""); err != nil {
		return nil, err
	}
	window, err := optionalRange(start, end)
	if err != nil {
		return nil, err
	}
	assignments, index, err := s.views.Load(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	filter := rotation.NewEligibilityFilter(assignments, index, nil)
	return filter.SubRotation(students, rotation.SubRotationCriteria{MainDepartment: dept, Range: window}), nil
}

// ForStudent returns one student's rotations ordered by start date.
func (s *RotationService) ForStudent(ctx context.Context, session models.Session, studentID string) ([]models.ClinicalRotation, error) {
	if err := ensureStudentAccess(session, studentID); err != nil {
		return nil, err
	}
	_, index, err := s.views.Load(ctx)
	if err != nil {
		return nil, err
	}
	return index.ForStudent(studentID), nil
}

// Create stores one rotation per student. Every student must be eligible or
// nothing is written.
func (s *RotationService) Create(ctx context.Context, session models.Session, req RotationRequest) ([]models.ClinicalRotation, error) {
	req.MainDepartment = strings.TrimSpace(req.MainDepartment)
	req.SubDepartment = strings.TrimSpace(req.SubDepartment)
	req.StudentIDs = uniqueStrings(req.StudentIDs)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid rotation payload")
	}
	dept, err := scopeDepartment(session, req.MainDepartment)
	if err != nil {
		return nil, err
	}
	if err := validateDepartment(dept, req.SubDepartment); err != nil {
		return nil, err
	}
	rng := rotation.NewDateRange(req.StartDate, req.EndDate)
	if err := rng.Validate(); err != nil {
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

	records := make([]models.ClinicalRotation, 0, len(req.StudentIDs))
	for _, sid := range req.StudentIDs {
		records = append(records, models.ClinicalRotation{
			MainDepartment: dept,
			SubDepartment:  req.SubDepartment,
			StudentID:      sid,
			StartDate:      rng.Start,
			EndDate:        rng.End,
		})
	}

	var rejected *appErrors.Error
	added, err := s.repo.AppendChecked(ctx, func(existing []models.ClinicalRotation) error {
		index := rotation.NewRotationIndex(existing, assignments.All())
		filter := rotation.NewEligibilityFilter(assignments, index, nil)
		eligible := filter.SubRotation(students, rotation.SubRotationCriteria{MainDepartment: dept, Range: rng})
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
		rejected = appErrors.WithDetails(appErrors.ErrValidation, "students not eligible for rotation: "+strings.Join(ineligible, ", "), ineligible)
		return rejected
	}, records...)
	if err != nil {
		if rejected != nil && errors.Is(err, appErrors.ErrValidation) {
			return nil, rejected
		}
		return nil, storageError(err, "failed to create rotations")
	}

	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("rotations created",
		zap.String("main_department", dept),
		zap.String("sub_department", req.SubDepartment),
		zap.Int("students", len(added)),
		zap.String("by", session.UserID),
	)
	return added, nil
}

// Delete removes a stored rotation. Rotations derived from assignments can
// only be removed by deleting the assignment.
func (s *RotationService) Delete(ctx context.Context, session models.Session, id string) error {
	if rotation.IsSynthetic(id) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "rotation is derived from an assignment; delete the assignment instead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "rotation not found", "failed to delete rotation")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("rotation deleted", zap.String("rotation_id", id), zap.String("by", session.UserID))
	return nil
}
