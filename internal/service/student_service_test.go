package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
	"github.com/noah-isme/clinical-rotation-api/pkg/export"
)

func TestStudentServiceListFiltersAndPaginates(t *testing.T) {
	repos := newTestRepositories(t)
	svc := NewStudentService(repos.Students, nil, nil, nil)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{Major: string(models.MajorGeneralPractice), PageSize: 1})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Y2020001", students[0].StudentCode)
	assert.Equal(t, 2, pagination.TotalCount)

	students, _, err = svc.List(context.Background(), models.StudentFilter{Search: "thị"})
	require.NoError(t, err)
	assert.Len(t, students, 3)
}

func TestStudentServiceSearchPrefersExactCode(t *testing.T) {
	repos := newTestRepositories(t)
	svc := NewStudentService(repos.Students, nil, nil, nil)

	st, err := svc.Search(context.Background(), "y2020002")
	require.NoError(t, err)
	assert.Equal(t, "s2", st.ID)

	st, err = svc.Search(context.Background(), "Phạm")
	require.NoError(t, err)
	assert.Equal(t, "s4", st.ID)

	_, err = svc.Search(context.Background(), "zzz")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceCreateRejectsDuplicateCode(t *testing.T) {
	repos := newTestRepositories(t)
	svc := NewStudentService(repos.Students, nil, nil, nil)

	req := StudentRequest{StudentCode: "Y2020001", FullName: "Dup", Major: string(models.MajorNursing), AcademicYear: 1}
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	req.StudentCode = "Y2020099"
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(context.Background(), StudentRequest{StudentCode: "X", FullName: "Y", Major: "Dược", AcademicYear: 1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Create(context.Background(), StudentRequest{StudentCode: "X", FullName: "Y", Major: string(models.MajorNursing), AcademicYear: 4})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceUpdateAndDelete(t *testing.T) {
	repos := newTestRepositories(t)
	svc := NewStudentService(repos.Students, nil, nil, nil)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "s1", StudentRequest{StudentCode: "Y2020001", FullName: "Trần Thị B2", Major: string(models.MajorGeneralPractice), AcademicYear: 3})
	require.NoError(t, err)
	assert.Equal(t, "Trần Thị B2", updated.FullName)

	_, err = svc.Update(ctx, "s1", StudentRequest{StudentCode: "Y2020002", FullName: "x", Major: string(models.MajorGeneralPractice), AcademicYear: 3})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Update(ctx, "missing", StudentRequest{StudentCode: "Z", FullName: "x", Major: string(models.MajorGeneralPractice), AcademicYear: 3})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "s5"))
	assert.ErrorIs(t, svc.Delete(ctx, "s5"), appErrors.ErrNotFound)
}

func TestStudentServiceImport(t *testing.T) {
	repos := newTestRepositories(t)
	svc := NewStudentService(repos.Students, nil, nil, nil)

	sheet, err := export.NewXLSXExporter().Render(export.Dataset{
		Headers: StudentTemplateHeaders,
		Rows: []map[string]string{
			{"Mã Sinh Viên": "DD24001", "Họ và Tên": "Võ Thị N", "Lớp": "DD24A", "Khóa": "K50", "Nhóm Lâm Sàng": "Nhom4"},
			{"Mã Sinh Viên": "DD24002"},
			{"Mã Sinh Viên": "Y2020001", "Họ và Tên": "Trùng mã"},
		},
	}, "SinhVien")
	require.NoError(t, err)

	result, err := svc.Import(context.Background(), bytes.NewReader(sheet), StudentImportRequest{Major: string(models.MajorNursing), AcademicYear: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	st, err := svc.Search(context.Background(), "DD24001")
	require.NoError(t, err)
	assert.Equal(t, models.MajorNursing, st.Major)
	assert.Equal(t, 1, st.AcademicYear)
	assert.Equal(t, "Nhom4", st.Group)

	_, err = svc.Import(context.Background(), bytes.NewReader(sheet), StudentImportRequest{AcademicYear: 1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceTemplateHasHeaders(t *testing.T) {
	svc := NewStudentService(nil, nil, nil, nil)
	data, err := svc.Template()
	require.NoError(t, err)

	rows, err := export.ParseWorkbook(data)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, StudentTemplateHeaders, rows[0])
}
