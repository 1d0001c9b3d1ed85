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

type studentRepository interface {
	GetAll(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Save(ctx context.Context, student *models.Student) error
	Append(ctx context.Context, students ...models.Student) ([]models.Student, error)
	Delete(ctx context.Context, id string) error
}

// StudentTemplateHeaders is the column layout of the student import sheet.
var StudentTemplateHeaders = []string{
	"Mã Sinh Viên",
	"Họ và Tên",
	"Lớp",
	"Khóa",
	"Ngày Sinh",
	"Số Điện Thoại",
	"Email",
	"Nhóm Lâm Sàng",
}

// StudentRequest holds the payload for creating or updating students.
type StudentRequest struct {
	StudentCode     string   `json:"studentCode" validate:"required"`
	FullName        string   `json:"fullName" validate:"required"`
	ClassID         string   `json:"classId"`
	Course          string   `json:"course"`
	Major           string   `json:"major" validate:"required"`
	AcademicYear    int      `json:"academicYear" validate:"required,min=1,max=3"`
	Group           string   `json:"group"`
	DOB             string   `json:"dob"`
	Phone           string   `json:"phone"`
	Email           string   `json:"email" validate:"omitempty,email"`
	AttendanceScore *float64 `json:"attendanceScore,omitempty" validate:"omitempty,min=0,max=10"`
	PracticeScore   *float64 `json:"practiceScore,omitempty" validate:"omitempty,min=0,max=10"`
	LogbookScore    *float64 `json:"logbookScore,omitempty" validate:"omitempty,min=0,max=10"`
}

// StudentImportRequest carries the cohort attributes applied to every
// imported row.
type StudentImportRequest struct {
	Major        string `form:"major" validate:"required"`
	AcademicYear int    `form:"academicYear" validate:"required,min=1,max=3"`
}

// ImportResult reports the outcome of a spreadsheet import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	cache     *CacheService
	xlsx      *export.XLSXExporter
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger, cache: cache, xlsx: export.NewXLSXExporter()}
}

// List returns students matching the filter and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, nil, storageError(err, "failed to list students")
	}

	search := strings.TrimSpace(filter.Search)
	matched := make([]models.Student, 0, len(students))
	for _, st := range students {
		if search != "" && !containsFold(st.FullName, search) && !containsFold(st.StudentCode, search) {
			continue
		}
		if filter.Major != "" && string(st.Major) != filter.Major {
			continue
		}
		if filter.Course != "" && st.Course != filter.Course {
			continue
		}
		if filter.Group != "" && st.Group != filter.Group {
			continue
		}
		if filter.ClassID != "" && st.ClassID != filter.ClassID {
			continue
		}
		if filter.AcademicYear != 0 && st.AcademicYear != filter.AcademicYear {
			continue
		}
		matched = append(matched, st)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].StudentCode < matched[j].StudentCode })

	page, pagination := paginate(matched, filter.Page, filter.PageSize)
	return page, pagination, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Search finds a student by exact code, falling back to the first name
// containing q.
func (s *StudentService) Search(ctx context.Context, q string) (*models.Student, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query is required")
	}
	students, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to search students")
	}
	for i := range students {
		if strings.EqualFold(students[i].StudentCode, q) {
			return &students[i], nil
		}
	}
	for i := range students {
		if containsFold(students[i].FullName, q) {
			return &students[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no student matches "+q)
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, req.StudentCode, ""); err != nil {
		return nil, err
	}

	student := buildStudent(req)
	if err := s.repo.Save(ctx, &student); err != nil {
		return nil, storageError(err, "failed to create student")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("code", student.StudentCode))
	return &student, nil
}

// Update replaces the attributes of an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if err := s.ensureUniqueCode(ctx, req.StudentCode, id); err != nil {
		return nil, err
	}

	student := buildStudent(req)
	student.ID = id
	if err := s.repo.Save(ctx, &student); err != nil {
		return nil, storageError(err, "failed to update student")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("student updated", zap.String("student_id", id))
	return &student, nil
}

// Delete removes a student. Records referencing the student are kept.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student not found", "failed to delete student")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// Template returns an empty import workbook.
func (s *StudentService) Template() ([]byte, error) {
	sample := map[string]string{
		"Mã Sinh Viên":  "Y2024001",
		"Họ và Tên":     "Nguyễn Văn A",
		"Lớp":           "YK24A",
		"Khóa":          "K50",
		"Ngày Sinh":     "2006-01-31",
		"Số Điện Thoại": "0900000000",
		"Email":         "a@sv.edu.vn",
		"Nhóm Lâm Sàng": "Nhom1",
	}
	data, err := s.xlsx.Render(export.Dataset{Headers: StudentTemplateHeaders, Rows: []map[string]string{sample}}, "SinhVien")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build template")
	}
	return data, nil
}

// Import reads the first sheet of r, skipping the header row, rows without a
// code or name, and codes that already exist.
func (s *StudentService) Import(ctx context.Context, r io.Reader, req StudentImportRequest) (*ImportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid import parameters")
	}
	if !models.Major(req.Major).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown major "+req.Major)
	}

	rows, err := export.ReadFirstSheet(r)
	if err != nil {
		return nil, validationError(err, "unreadable workbook")
	}

	existing, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	codes := make(map[string]struct{}, len(existing))
	for _, st := range existing {
		codes[strings.ToLower(st.StudentCode)] = struct{}{}
	}

	result := &ImportResult{}
	batch := make([]models.Student, 0, len(rows))
	for idx, row := range rows {
		if idx == 0 {
			continue
		}
		code, name := cellAt(row, 0), cellAt(row, 1)
		if code == "" || name == "" {
			result.Skipped++
			continue
		}
		if _, dup := codes[strings.ToLower(code)]; dup {
			result.Skipped++
			result.Warnings = append(result.Warnings, "duplicate student code "+code)
			continue
		}
		codes[strings.ToLower(code)] = struct{}{}
		batch = append(batch, models.Student{
			StudentCode:  code,
			FullName:     name,
			ClassID:      cellAt(row, 2),
			Course:       cellAt(row, 3),
			DOB:          cellAt(row, 4),
			Phone:        cellAt(row, 5),
			Email:        cellAt(row, 6),
			Group:        cellAt(row, 7),
			Major:        models.Major(req.Major),
			AcademicYear: req.AcademicYear,
		})
	}

	added, err := s.repo.Append(ctx, batch...)
	if err != nil {
		return nil, storageError(err, "failed to import students")
	}
	result.Imported = len(added)
	if result.Imported > 0 {
		s.cache.InvalidateDashboards(ctx)
	}
	s.logger.Info("students imported", zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *StudentService) validateRequest(req StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid student payload")
	}
	if !models.Major(req.Major).Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown major "+req.Major)
	}
	return nil
}

func (s *StudentService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	students, err := s.repo.GetAll(ctx)
	if err != nil {
		return storageError(err, "failed to validate student code")
	}
	for _, st := range students {
		if st.ID != excludeID && strings.EqualFold(st.StudentCode, strings.TrimSpace(code)) {
			return appErrors.Clone(appErrors.ErrConflict, "student code already used")
		}
	}
	return nil
}

func buildStudent(req StudentRequest) models.Student {
	return models.Student{
		StudentCode:     strings.TrimSpace(req.StudentCode),
		FullName:        strings.TrimSpace(req.FullName),
		ClassID:         req.ClassID,
		Course:          req.Course,
		Major:           models.Major(req.Major),
		AcademicYear:    req.AcademicYear,
		Group:           req.Group,
		DOB:             req.DOB,
		Phone:           req.Phone,
		Email:           req.Email,
		AttendanceScore: req.AttendanceScore,
		PracticeScore:   req.PracticeScore,
		LogbookScore:    req.LogbookScore,
	}
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
