package service

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/export"
)

type lecturerRepository interface {
	GetAll(ctx context.Context) ([]models.Lecturer, error)
	FindByID(ctx context.Context, id string) (*models.Lecturer, error)
	Save(ctx context.Context, lecturer *models.Lecturer) error
	Append(ctx context.Context, lecturers ...models.Lecturer) ([]models.Lecturer, error)
	Delete(ctx context.Context, id string) error
}

// LecturerTemplateHeaders is the column layout of the lecturer import sheet.
var LecturerTemplateHeaders = []string{"Họ và Tên", "Khoa phụ trách hướng dẫn", "Số Điện Thoại", "Email"}

// LecturerRequest represents the payload for creating or updating lecturers.
type LecturerRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Department string `json:"department" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
}

// LecturerService orchestrates lecturer operations.
type LecturerService struct {
	repo      lecturerRepository
	validator *validator.Validate
	logger    *zap.Logger
	xlsx      *export.XLSXExporter
}

// NewLecturerService constructs a LecturerService.
func NewLecturerService(repo lecturerRepository, validate *validator.Validate, logger *zap.Logger) *LecturerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LecturerService{repo: repo, validator: validate, logger: logger, xlsx: export.NewXLSXExporter()}
}

// List returns lecturers, optionally of one department, ordered by name.
func (s *LecturerService) List(ctx context.Context, filter models.LecturerFilter) ([]models.Lecturer, error) {
	lecturers, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list lecturers")
	}
	result := make([]models.Lecturer, 0, len(lecturers))
	for _, l := range lecturers {
		if filter.Department != "" && l.Department != filter.Department {
			continue
		}
		if filter.Search != "" && !containsFold(l.FullName, filter.Search) {
			continue
		}
		result = append(result, l)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, nil
}

// Get returns a lecturer by id.
func (s *LecturerService) Get(ctx context.Context, id string) (*models.Lecturer, error) {
	lecturer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lecturer not found", "failed to load lecturer")
	}
	return lecturer, nil
}

// Create registers a lecturer.
func (s *LecturerService) Create(ctx context.Context, req LecturerRequest) (*models.Lecturer, error) {
	lecturer, err := s.buildLecturer(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, lecturer); err != nil {
		return nil, storageError(err, "failed to create lecturer")
	}
	s.logger.Info("lecturer created", zap.String("lecturer_id", lecturer.ID), zap.String("department", lecturer.Department))
	return lecturer, nil
}

// Update modifies lecturer information.
func (s *LecturerService) Update(ctx context.Context, id string, req LecturerRequest) (*models.Lecturer, error) {
	lecturer, err := s.buildLecturer(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "lecturer not found", "failed to load lecturer")
	}
	lecturer.ID = id
	if err := s.repo.Save(ctx, lecturer); err != nil {
		return nil, storageError(err, "failed to update lecturer")
	}
	s.logger.Info("lecturer updated", zap.String("lecturer_id", id))
	return lecturer, nil
}

// Delete removes a lecturer.
func (s *LecturerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "lecturer not found", "failed to delete lecturer")
	}
	s.logger.Info("lecturer deleted", zap.String("lecturer_id", id))
	return nil
}

// Template returns an empty lecturer import workbook.
func (s *LecturerService) Template() ([]byte, error) {
	sample := map[string]string{
		"Họ và Tên":                "BS. Nguyễn Văn A",
		"Khoa phụ trách hướng dẫn": models.Departments[0],
		"Số Điện Thoại":            "0912345678",
		"Email":                    "a@bv.edu.vn",
	}
	data, err := s.xlsx.Render(export.Dataset{Headers: LecturerTemplateHeaders, Rows: []map[string]string{sample}}, "GiangVien")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build template")
	}
	return data, nil
}

// Import reads lecturers from the first sheet of r. Rows without a name are
// skipped and departments are matched to the catalogue ignoring case.
func (s *LecturerService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := export.ReadFirstSheet(r)
	if err != nil {
		return nil, validationError(err, "unreadable workbook")
	}

	result := &ImportResult{}
	batch := make([]models.Lecturer, 0, len(rows))
	for idx, row := range rows {
		if idx == 0 {
			continue
		}
		name := cellAt(row, 0)
		if name == "" {
			result.Skipped++
			continue
		}
		dept := models.NormalizeDepartment(cellAt(row, 1))
		if dept != "" && !models.IsDepartment(dept) {
			result.Warnings = append(result.Warnings, "unknown department "+dept+" for "+name)
		}
		batch = append(batch, models.Lecturer{
			FullName:   name,
			Department: dept,
			Phone:      cellAt(row, 2),
			Email:      cellAt(row, 3),
		})
	}

	added, err := s.repo.Append(ctx, batch...)
	if err != nil {
		return nil, storageError(err, "failed to import lecturers")
	}
	result.Imported = len(added)
	s.logger.Info("lecturers imported", zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *LecturerService) buildLecturer(req LecturerRequest) (*models.Lecturer, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Department = models.NormalizeDepartment(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lecturer payload")
	}
	if !models.IsDepartment(req.Department) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown department "+req.Department)
	}
	return &models.Lecturer{
		FullName:   req.FullName,
		Department: req.Department,
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
	}, nil
}
