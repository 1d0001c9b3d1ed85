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

type clinicalReportRepository interface {
	GetAll(ctx context.Context) ([]models.ClinicalReport, error)
	Save(ctx context.Context, report *models.ClinicalReport) error
}

type teachingPlanLister interface {
	GetAll(ctx context.Context) ([]models.TeachingPlan, error)
}

// ClinicalReportRequest is the weekly report payload.
type ClinicalReportRequest struct {
	Department         string                          `json:"department" validate:"required"`
	Date               string                          `json:"date" validate:"required"`
	WeekNumber         int                             `json:"weekNumber" validate:"required,min=1,max=52"`
	StartDate          string                          `json:"startDate" validate:"required"`
	EndDate            string                          `json:"endDate" validate:"required"`
	LecturerActivities []models.ReportLecturerActivity `json:"lecturerActivities" validate:"dive"`
	AbsentStudents     []models.StudentAbsenceRecord   `json:"absentStudents" validate:"dive"`
	ClassFeedback      string                          `json:"classFeedback"`
	SkillFeedback      string                          `json:"skillFeedback"`
}

// ReportCandidates lists who can appear on a department's report.
type ReportCandidates struct {
	Lecturers []models.Lecturer `json:"lecturers"`
	Students  []models.Student  `json:"students"`
	Cohorts   []string          `json:"cohorts"`
}

// ClinicalReportService files weekly clinical reports.
type ClinicalReportService struct {
	repo        clinicalReportRepository
	lecturers   lecturerLister
	students    studentLister
	assignments assignmentLister
	plans       teachingPlanLister
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClinicalReportService constructs the report service.
func NewClinicalReportService(repo clinicalReportRepository, lecturers lecturerLister, students studentLister, assignments assignmentLister, plans teachingPlanLister, validate *validator.Validate, logger *zap.Logger) *ClinicalReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClinicalReportService{
		repo:        repo,
		lecturers:   lecturers,
		students:    students,
		assignments: assignments,
		plans:       plans,
		validator:   validate,
		logger:      logger,
	}
}

// List returns reports newest week first. Lecturers see the reports they
// filed unless they ask for another author.
func (s *ClinicalReportService) List(ctx context.Context, session models.Session, filter models.ClinicalReportFilter) ([]models.ClinicalReport, error) {
	if filter.LecturerID == "" && session.Role == models.RoleLecturer {
		filter.LecturerID = session.UserID
	}
	reports, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list clinical reports")
	}
	result := make([]models.ClinicalReport, 0, len(reports))
	for _, r := range reports {
		if filter.Department != "" && r.Department != filter.Department {
			continue
		}
		if filter.LecturerID != "" && r.LecturerID != filter.LecturerID {
			continue
		}
		if !weekInRange(r.WeekNumber, filter.StartWeek, filter.EndWeek) {
			continue
		}
		result = append(result, r)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].WeekNumber != result[j].WeekNumber {
			return result[i].WeekNumber > result[j].WeekNumber
		}
		return result[i].Date > result[j].Date
	})
	return result, nil
}

// Create files a report authored by the session user. Theory sessions are
// recounted from the lecturer's teaching plans within the reporting period.
func (s *ClinicalReportService) Create(ctx context.Context, session models.Session, req ClinicalReportRequest) (*models.ClinicalReport, error) {
	req.Department = models.NormalizeDepartment(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid clinical report payload")
	}
	if err := validateDepartment(req.Department, ""); err != nil {
		return nil, err
	}
	if _, err := rotation.ParseDate(req.Date); err != nil {
		return nil, validationError(err, "invalid report date")
	}
	period := rotation.NewDateRange(req.StartDate, req.EndDate)
	if err := period.Validate(); err != nil {
		return nil, err
	}

	lecturers, err := s.lecturers.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load lecturers")
	}
	plans, err := s.plans.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load teaching plans")
	}
	byLecturer := indexLecturers(lecturers)

	activities := make([]models.ReportLecturerActivity, 0, len(req.LecturerActivities))
	seen := make(map[string]struct{}, len(req.LecturerActivities))
	for _, act := range req.LecturerActivities {
		lecturer, ok := byLecturer[act.LecturerID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown lecturer "+act.LecturerID)
		}
		if _, dup := seen[act.LecturerID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lecturer listed twice: "+lecturer.FullName)
		}
		seen[act.LecturerID] = struct{}{}
		act.LecturerName = lecturer.FullName
		act.TheorySessions = countTheorySessions(plans, act.LecturerID, period)
		activities = append(activities, act)
	}

	absences := make([]models.StudentAbsenceRecord, 0, len(req.AbsentStudents))
	if len(req.AbsentStudents) > 0 {
		students, err := s.students.GetAll(ctx)
		if err != nil {
			return nil, storageError(err, "failed to load students")
		}
		byStudent := indexStudents(students)
		for _, rec := range req.AbsentStudents {
			if _, ok := byStudent[rec.StudentID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown student "+rec.StudentID)
			}
			if rec.SessionCount > 0 {
				absences = append(absences, rec)
			}
		}
	}

	report := &models.ClinicalReport{
		LecturerID:         session.UserID,
		Department:         req.Department,
		Date:               req.Date,
		WeekNumber:         req.WeekNumber,
		StartDate:          period.Start,
		EndDate:            period.End,
		LecturerActivities: activities,
		AbsentStudents:     absences,
		ClassFeedback:      strings.TrimSpace(req.ClassFeedback),
		SkillFeedback:      strings.TrimSpace(req.SkillFeedback),
	}
	if err := s.repo.Save(ctx, report); err != nil {
		return nil, storageError(err, "failed to create clinical report")
	}
	s.logger.Info("clinical report filed",
		zap.String("report_id", report.ID),
		zap.String("department", report.Department),
		zap.Int("week", report.WeekNumber),
		zap.String("by", session.UserID),
	)
	return report, nil
}

// Candidates lists the department's lecturers, the students ever assigned to
// it and their sorted cohort labels.
func (s *ClinicalReportService) Candidates(ctx context.Context, department string) (*ReportCandidates, error) {
	department = models.NormalizeDepartment(department)
	if err := validateDepartment(department, ""); err != nil {
		return nil, err
	}
	lecturers, err := s.lecturers.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load lecturers")
	}
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load students")
	}
	assignments, err := s.assignments.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load assignments")
	}

	result := &ReportCandidates{Lecturers: make([]models.Lecturer, 0), Students: make([]models.Student, 0), Cohorts: make([]string, 0)}
	for _, l := range lecturers {
		if l.Department == department {
			result.Lecturers = append(result.Lecturers, l)
		}
	}

	assigned := rotation.NewAssignmentIndex(assignments).StudentsEverAssignedTo(department)
	cohorts := make(map[string]struct{})
	for _, st := range students {
		if _, ok := assigned[st.ID]; !ok {
			continue
		}
		result.Students = append(result.Students, st)
		cohorts[st.CohortLabel()] = struct{}{}
	}
	for label := range cohorts {
		result.Cohorts = append(result.Cohorts, label)
	}
	sort.Strings(result.Cohorts)
	return result, nil
}

func countTheorySessions(plans []models.TeachingPlan, lecturerID string, period rotation.DateRange) int {
	count := 0
	for _, p := range plans {
		if p.LecturerID == lecturerID && period.Contains(p.Date) {
			count++
		}
	}
	return count
}

func weekInRange(week, start, end int) bool {
	if start > 0 && week < start {
		return false
	}
	if end > 0 && week > end {
		return false
	}
	return true
}
