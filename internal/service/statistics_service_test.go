package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/repository"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/export"
)

func newStatisticsFixture(t *testing.T) (*StatisticsService, *repository.Repositories) {
	t.Helper()
	repos := newTestRepositories(t)
	_, err := repos.Reports.Append(context.Background(),
		models.ClinicalReport{ID: "r1", LecturerID: "u2", Department: "Nội", WeekNumber: 10, LecturerActivities: []models.ReportLecturerActivity{
			{LecturerID: "l1", ClinicalSessions: 2, TheorySessions: 1},
		}},
		models.ClinicalReport{ID: "r2", LecturerID: "u2", Department: "Ngoại", WeekNumber: 11, LecturerActivities: []models.ReportLecturerActivity{
			{LecturerID: "l2", ClinicalSessions: 4, TheorySessions: 2},
			{LecturerID: "ghost", ClinicalSessions: 9},
		}},
		models.ClinicalReport{ID: "r3", LecturerID: "u2", Department: "Nội", WeekNumber: 30, LecturerActivities: []models.ReportLecturerActivity{
			{LecturerID: "l1", ClinicalSessions: 10},
		}},
	)
	require.NoError(t, err)
	return NewStatisticsService(repos.Reports, repos.Lecturers, nil), repos
}

func TestStatisticsServiceTeachingHoursRanksByTotal(t *testing.T) {
	svc, _ := newStatisticsFixture(t)

	rows, err := svc.TeachingHours(context.Background(), StatisticsQuery{StartWeek: 1, EndWeek: 20})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "l2", rows[0].LecturerID)
	assert.Equal(t, 6.0, rows[0].ClinicalHours)
	assert.Equal(t, 1.0, rows[0].TheoryHours)
	assert.Equal(t, 7.0, rows[0].TotalHours)

	assert.Equal(t, "l1", rows[1].LecturerID)
	assert.Equal(t, 3.5, rows[1].TotalHours)
}

func TestStatisticsServiceIncludesIdleLecturers(t *testing.T) {
	svc, _ := newStatisticsFixture(t)

	rows, err := svc.TeachingHours(context.Background(), StatisticsQuery{Department: "Ngoại", StartWeek: 20, EndWeek: 25})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "l2", rows[0].LecturerID)
	assert.Zero(t, rows[0].TotalHours)
}

func TestStatisticsServiceDefaultsToWholeYear(t *testing.T) {
	svc, _ := newStatisticsFixture(t)

	rows, err := svc.TeachingHours(context.Background(), StatisticsQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "l1", rows[0].LecturerID)
	assert.Equal(t, 18.5, rows[0].TotalHours)
}

func TestStatisticsServiceRejectsBadQueries(t *testing.T) {
	svc, _ := newStatisticsFixture(t)
	ctx := context.Background()

	for name, q := range map[string]StatisticsQuery{
		"inverted":   {StartWeek: 10, EndWeek: 2},
		"past year":  {StartWeek: 1, EndWeek: 53},
		"department": {Department: "Không có"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.TeachingHours(ctx, q)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestScopeStatisticsQuery(t *testing.T) {
	q, err := ScopeStatisticsQuery(lecturerSession("Nội"), StatisticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Nội", q.Department)
	assert.Equal(t, 1, q.StartWeek)
	assert.Equal(t, 52, q.EndWeek)

	_, err = ScopeStatisticsQuery(lecturerSession("Nội"), StatisticsQuery{Department: "Ngoại"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = ScopeStatisticsQuery(studentSession("s1"), StatisticsQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	q, err = ScopeStatisticsQuery(adminSession(), StatisticsQuery{Department: "Ngoại", StartWeek: 3})
	require.NoError(t, err)
	assert.Equal(t, "Ngoại", q.Department)
	assert.Equal(t, 3, q.StartWeek)
}

func TestStatisticsServiceRenderFormats(t *testing.T) {
	svc, _ := newStatisticsFixture(t)
	ctx := context.Background()
	q := StatisticsQuery{StartWeek: 1, EndWeek: 20}

	xlsx, name, err := svc.Render(ctx, q, models.ExportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "ThongKe_GioGiang_ToanVien_Tuan1-20.xlsx", name)
	rows, err := export.ParseWorkbook(xlsx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, TeachingHoursHeaders, rows[0])
	assert.Equal(t, []string{"1", "BS. Phạm Thị D", "Ngoại", "4", "6", "2", "1", "7"}, rows[1])

	csv, name, err := svc.Render(ctx, StatisticsQuery{Department: "Nội"}, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "ThongKe_GioGiang_Nội_Tuan1-52.csv", name)
	assert.True(t, bytes.Contains(csv, []byte("BS. Nguyễn Văn A")))

	pdf, _, err := svc.Render(ctx, q, models.ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, _, err = svc.Render(ctx, q, models.ExportFormat("docx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
