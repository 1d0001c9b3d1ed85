package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/export"
)

const (
	firstWeek          = 1
	lastWeek           = 52
	teachingHoursSheet = "ThongKeGioGiang"
	teachingHoursTitle = "Thống kê giờ giảng"
	wholeHospitalLabel = "ToanVien"
)

// TeachingHoursHeaders is the column layout of teaching-hour exports.
var TeachingHoursHeaders = []string{
	"STT",
	"Họ và tên",
	"Khoa",
	"Số buổi Lâm sàng",
	"Giờ Lâm sàng (x1.5)",
	"Số buổi Lý thuyết",
	"Giờ Lý thuyết (x0.5)",
	"Tổng giờ quy đổi",
}

type reportLister interface {
	GetAll(ctx context.Context) ([]models.ClinicalReport, error)
}

// StatisticsQuery selects the reports aggregated into teaching hours. Zero
// weeks default to the whole year.
type StatisticsQuery struct {
	Department string `form:"department"`
	StartWeek  int    `form:"startWeek"`
	EndWeek    int    `form:"endWeek"`
}

// StatisticsService converts reported sessions into teaching hours.
type StatisticsService struct {
	reports   reportLister
	lecturers lecturerLister
	xlsx      *export.XLSXExporter
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewStatisticsService constructs the statistics service.
func NewStatisticsService(reports reportLister, lecturers lecturerLister, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		reports:   reports,
		lecturers: lecturers,
		xlsx:      export.NewXLSXExporter(),
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// TeachingHours sums every lecturer's sessions over reports in the week range
// and ranks them by converted hours. Lecturers without activity are included.
func (s *StatisticsService) TeachingHours(ctx context.Context, q StatisticsQuery) ([]models.LecturerHours, error) {
	q, err := normalizeStatisticsQuery(q)
	if err != nil {
		return nil, err
	}
	lecturers, err := s.lecturers.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load lecturers")
	}
	reports, err := s.reports.GetAll(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load clinical reports")
	}

	rows := make([]models.LecturerHours, 0, len(lecturers))
	pos := make(map[string]int, len(lecturers))
	for _, l := range lecturers {
		if q.Department != "" && l.Department != q.Department {
			continue
		}
		pos[l.ID] = len(rows)
		rows = append(rows, models.LecturerHours{LecturerID: l.ID, FullName: l.FullName, Department: l.Department})
	}

	for _, r := range reports {
		if r.WeekNumber < q.StartWeek || r.WeekNumber > q.EndWeek {
			continue
		}
		for _, act := range r.LecturerActivities {
			idx, ok := pos[act.LecturerID]
			if !ok {
				continue
			}
			rows[idx].ClinicalSessions += act.ClinicalSessions
			rows[idx].TheorySessions += act.TheorySessions
		}
	}

	for i := range rows {
		rows[i].ClinicalHours = float64(rows[i].ClinicalSessions) * models.ClinicalHoursPerSession
		rows[i].TheoryHours = float64(rows[i].TheorySessions) * models.TheoryHoursPerSession
		rows[i].TotalHours = rows[i].ClinicalHours + rows[i].TheoryHours
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalHours > rows[j].TotalHours })
	return rows, nil
}

// Dataset renders teaching hours in export column order.
func (s *StatisticsService) Dataset(rows []models.LecturerHours) export.Dataset {
	data := export.Dataset{Headers: TeachingHoursHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for i, r := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"STT":                  strconv.Itoa(i + 1),
			"Họ và tên":            r.FullName,
			"Khoa":                 r.Department,
			"Số buổi Lâm sàng":     strconv.Itoa(r.ClinicalSessions),
			"Giờ Lâm sàng (x1.5)":  formatHours(r.ClinicalHours),
			"Số buổi Lý thuyết":    strconv.Itoa(r.TheorySessions),
			"Giờ Lý thuyết (x0.5)": formatHours(r.TheoryHours),
			"Tổng giờ quy đổi":     formatHours(r.TotalHours),
		})
	}
	return data
}

// Render produces the teaching-hours document in the requested format.
func (s *StatisticsService) Render(ctx context.Context, q StatisticsQuery, format models.ExportFormat) ([]byte, string, error) {
	q, err := normalizeStatisticsQuery(q)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.TeachingHours(ctx, q)
	if err != nil {
		return nil, "", err
	}
	data := s.Dataset(rows)

	var payload []byte
	switch format {
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(data, teachingHoursSheet)
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(data)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(data, fmt.Sprintf("%s - %s - tuần %d-%d", teachingHoursTitle, departmentLabel(q.Department), q.StartWeek, q.EndWeek))
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+string(format))
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render teaching hours")
	}
	return payload, TeachingHoursFilename(q, format), nil
}

// TeachingHoursFilename names an export after its department and week range.
func TeachingHoursFilename(q StatisticsQuery, format models.ExportFormat) string {
	return fmt.Sprintf("ThongKe_GioGiang_%s_Tuan%d-%d.%s", departmentLabel(q.Department), q.StartWeek, q.EndWeek, format)
}

// ScopeStatisticsQuery applies the session's department and normalizes the
// week range.
func ScopeStatisticsQuery(session models.Session, q StatisticsQuery) (StatisticsQuery, error) {
	if session.Role == models.RoleStudent {
		return q, appErrors.ErrForbidden
	}
	dept, err := scopeDepartment(session, q.Department)
	if err != nil {
		return q, err
	}
	q.Department = dept
	return normalizeStatisticsQuery(q)
}

func normalizeStatisticsQuery(q StatisticsQuery) (StatisticsQuery, error) {
	if q.StartWeek == 0 {
		q.StartWeek = firstWeek
	}
	if q.EndWeek == 0 {
		q.EndWeek = lastWeek
	}
	if q.StartWeek < firstWeek || q.EndWeek > lastWeek || q.StartWeek > q.EndWeek {
		return q, appErrors.Clone(appErrors.ErrValidation, "week range must satisfy 1 <= startWeek <= endWeek <= 52")
	}
	if q.Department != "" {
		q.Department = models.NormalizeDepartment(q.Department)
		if err := validateDepartment(q.Department, ""); err != nil {
			return q, err
		}
	}
	return q, nil
}

func departmentLabel(dept string) string {
	if dept == "" {
		return wholeHospitalLabel
	}
	return dept
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
