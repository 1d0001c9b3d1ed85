package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/dto"
	"github.com/noah-isme/clinical-rotation-api/internal/middleware"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

func newGinContext(method, path string, body io.Reader) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}

func withSession(c *gin.Context, claims *models.JWTClaims) {
	c.Set(middleware.ContextUserKey, claims)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

type assignmentServiceStub struct {
	created   *service.AssignmentRequest
	createErr error
	filter    models.AssignmentFilter
}

func (s *assignmentServiceStub) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	s.filter = filter
	return []models.Assignment{}, nil
}

func (s *assignmentServiceStub) Overview(ctx context.Context, department string, window rotation.DateRange) ([]service.DepartmentOverview, error) {
	return nil, nil
}

func (s *assignmentServiceStub) Check(ctx context.Context, req service.AssignmentRequest) (*service.AssignmentCheckResult, error) {
	return &service.AssignmentCheckResult{OK: true}, nil
}

func (s *assignmentServiceStub) Create(ctx context.Context, req service.AssignmentRequest) (*models.Assignment, error) {
	s.created = &req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Assignment{ID: "a1", Department: req.Department, StudentIDs: req.StudentIDs}, nil
}

func (s *assignmentServiceStub) Delete(ctx context.Context, id string) error {
	return nil
}

func TestAssignmentHandlerCreate(t *testing.T) {
	stub := &assignmentServiceStub{}
	h := NewAssignmentHandler(stub)

	c, w := newGinContext(http.MethodPost, "/assignments", bytes.NewBufferString(`{"department":"Nội","startDate":"2024-01-01","endDate":"2024-01-31","studentIds":["s1"]}`))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, stub.created)
	assert.Equal(t, []string{"s1"}, stub.created.StudentIDs)
}

func TestAssignmentHandlerCreateConflict(t *testing.T) {
	details := map[string]interface{}{"remaining": 0}
	stub := &assignmentServiceStub{createErr: appErrors.WithDetails(appErrors.ErrAssignmentConflict, "", details)}
	h := NewAssignmentHandler(stub)

	c, w := newGinContext(http.MethodPost, "/assignments", bytes.NewBufferString(`{"department":"Nội","startDate":"2024-01-01","endDate":"2024-01-31","studentIds":["s1"]}`))
	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ASSIGNMENT_CONFLICT")
	assert.Contains(t, w.Body.String(), `"remaining":0`)
}

func TestAssignmentHandlerRejectsMalformedBody(t *testing.T) {
	stub := &assignmentServiceStub{}
	h := NewAssignmentHandler(stub)

	c, w := newGinContext(http.MethodPost, "/assignments", bytes.NewBufferString(`{"studentIds":`))
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, stub.created)
}

func TestAssignmentHandlerListScopesLecturerDepartment(t *testing.T) {
	stub := &assignmentServiceStub{}
	h := NewAssignmentHandler(stub)

	c, w := newGinContext(http.MethodGet, "/assignments", nil)
	withSession(c, &models.JWTClaims{UserID: "u2", Role: models.RoleLecturer, Department: "Nội"})
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Nội", stub.filter.Department)

	c, w = newGinContext(http.MethodGet, "/assignments?department=Ngoại", nil)
	withSession(c, &models.JWTClaims{UserID: "u2", Role: models.RoleLecturer, Department: "Nội"})
	h.List(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignmentHandlerListRequiresSession(t *testing.T) {
	h := NewAssignmentHandler(&assignmentServiceStub{})
	c, w := newGinContext(http.MethodGet, "/assignments", nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type onCallServiceStub struct {
	cohort  models.CohortFilter
	checkIn service.CheckInRequest
	session models.Session
}

func (s *onCallServiceStub) List(ctx context.Context, session models.Session, filter models.OnCallFilter) ([]service.OnCallView, error) {
	return nil, nil
}

func (s *onCallServiceStub) Available(ctx context.Context, session models.Session, department, date string, cohort models.CohortFilter) ([]models.Student, error) {
	s.cohort = cohort
	return []models.Student{{ID: "s1"}}, nil
}

func (s *onCallServiceStub) Create(ctx context.Context, session models.Session, req service.OnCallRequest) ([]models.OnCallSchedule, error) {
	return nil, nil
}

func (s *onCallServiceStub) ForStudent(ctx context.Context, session models.Session, studentID string) ([]models.OnCallSchedule, error) {
	return nil, nil
}

func (s *onCallServiceStub) CheckIn(ctx context.Context, session models.Session, id string, req service.CheckInRequest) (*models.OnCallSchedule, error) {
	s.session = session
	s.checkIn = req
	return &models.OnCallSchedule{ID: id, StudentID: session.RelatedID}, nil
}

func (s *onCallServiceStub) Delete(ctx context.Context, id string) error {
	return nil
}

func TestOnCallHandlerAvailableBindsCohort(t *testing.T) {
	stub := &onCallServiceStub{}
	h := NewOnCallHandler(stub)

	c, w := newGinContext(http.MethodGet, "/oncall/available?department=Nội&date=2024-03-12&major=Y%20đa%20khoa&group=Nhom1", nil)
	withSession(c, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.Available(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Y đa khoa", stub.cohort.Major)
	assert.Equal(t, "Nhom1", stub.cohort.Group)
	assert.Empty(t, stub.cohort.Course)
}

func TestOnCallHandlerCheckInPassesSession(t *testing.T) {
	stub := &onCallServiceStub{}
	h := NewOnCallHandler(stub)

	c, w := newGinContext(http.MethodPost, "/oncall/sc1/check-in", bytes.NewBufferString(`{"latitude":10.77,"longitude":106.69}`))
	c.Params = gin.Params{{Key: "id", Value: "sc1"}}
	withSession(c, &models.JWTClaims{UserID: "u3", Role: models.RoleStudent, RelatedID: "s1"})
	h.CheckIn(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", stub.session.RelatedID)
	require.NotNil(t, stub.checkIn.Latitude)
	assert.InDelta(t, 10.77, *stub.checkIn.Latitude, 0.0001)
}

type dashboardServiceStub struct {
	hit bool
}

func (s dashboardServiceStub) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	return &dto.AdminDashboardResponse{TotalStudents: 5}, s.hit, nil
}

func (s dashboardServiceStub) Student(ctx context.Context, session models.Session, studentID string) (*dto.StudentDashboardResponse, bool, error) {
	if session.Role == models.RoleStudent && session.RelatedID != studentID {
		return nil, false, appErrors.ErrForbidden
	}
	return &dto.StudentDashboardResponse{}, s.hit, nil
}

func TestDashboardHandlerReportsCacheHit(t *testing.T) {
	h := NewDashboardHandler(dashboardServiceStub{hit: true})

	c, w := newGinContext(http.MethodGet, "/dashboard/admin", nil)
	h.Admin(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["meta"]), `"cache_hit":true`)
	assert.Contains(t, string(envelope["data"]), `"totalStudents":5`)
}

func TestDashboardHandlerStudentForbidden(t *testing.T) {
	h := NewDashboardHandler(dashboardServiceStub{})

	c, w := newGinContext(http.MethodGet, "/dashboard/students/s2", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "s2"}}
	withSession(c, &models.JWTClaims{UserID: "u3", Role: models.RoleStudent, RelatedID: "s1"})
	h.Student(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

type statisticsServiceStub struct {
	query service.StatisticsQuery
}

func (s *statisticsServiceStub) TeachingHours(ctx context.Context, q service.StatisticsQuery) ([]models.LecturerHours, error) {
	s.query = q
	return []models.LecturerHours{{LecturerID: "l1", TotalHours: 3}}, nil
}

func (s *statisticsServiceStub) Render(ctx context.Context, q service.StatisticsQuery, format models.ExportFormat) ([]byte, string, error) {
	s.query = q
	return []byte("PK"), "ThongKe.xlsx", nil
}

type exportJobServiceStub struct {
	download *service.ExportDownload
}

func (s *exportJobServiceStub) CreateJob(ctx context.Context, session models.Session, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	return &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}, nil
}

func (s *exportJobServiceStub) GetStatus(ctx context.Context, session models.Session, id string) (*dto.ExportStatusResponse, error) {
	return &dto.ExportStatusResponse{ID: id, Status: models.ExportStatusFinished, Progress: 100}, nil
}

func (s *exportJobServiceStub) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return s.download, nil
}

func TestStatisticsHandlerTeachingHoursDefaults(t *testing.T) {
	stats := &statisticsServiceStub{}
	h := NewStatisticsHandler(stats, nil)

	c, w := newGinContext(http.MethodGet, "/statistics/teaching-hours", nil)
	withSession(c, &models.JWTClaims{UserID: "u2", Role: models.RoleLecturer, Department: "Nội"})
	h.TeachingHours(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.StatisticsQuery{Department: "Nội", StartWeek: 1, EndWeek: 52}, stats.query)
}

func TestStatisticsHandlerRejectsBadWeeks(t *testing.T) {
	h := NewStatisticsHandler(&statisticsServiceStub{}, nil)

	c, w := newGinContext(http.MethodGet, "/statistics/teaching-hours?startWeek=abc", nil)
	withSession(c, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.TeachingHours(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/statistics/teaching-hours?startWeek=20&endWeek=10", nil)
	withSession(c, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.TeachingHours(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatisticsHandlerWorkbookAttachment(t *testing.T) {
	h := NewStatisticsHandler(&statisticsServiceStub{}, nil)

	c, w := newGinContext(http.MethodGet, "/statistics/teaching-hours.xlsx", nil)
	withSession(c, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.TeachingHoursWorkbook(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="ThongKe.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "PK", w.Body.String())
}

func TestStatisticsHandlerExportLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	exports := &exportJobServiceStub{download: &service.ExportDownload{File: file, Filename: "report.csv", Format: models.ExportFormatCSV}}
	h := NewStatisticsHandler(&statisticsServiceStub{}, exports)

	c, w := newGinContext(http.MethodPost, "/statistics/exports", bytes.NewBufferString(`{"format":"csv"}`))
	withSession(c, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.CreateExport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"job-1"`)

	c, w = newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newGinContext(http.MethodGet, "/export/good", nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a,b\n", w.Body.String())
	assert.Equal(t, `attachment; filename="report.csv"`, w.Header().Get("Content-Disposition"))
}

func TestStatisticsHandlerExportsDisabled(t *testing.T) {
	h := NewStatisticsHandler(&statisticsServiceStub{}, nil)

	c, w := newGinContext(http.MethodPost, "/statistics/exports", bytes.NewBufferString(`{}`))
	withSession(c, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.CreateExport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type databaseServiceStub struct {
	imported []byte
}

func (s *databaseServiceStub) Export(ctx context.Context) ([]byte, error) {
	return []byte(`{"cmp_users":[]}`), nil
}

func (s *databaseServiceStub) Import(ctx context.Context, payload []byte) (*models.ImportSummary, error) {
	s.imported = payload
	return &models.ImportSummary{Collections: map[string]int{"cmp_users": 0}}, nil
}

func (s *databaseServiceStub) Reset(ctx context.Context) error { return nil }

func (s *databaseServiceStub) Orphans(ctx context.Context) (*models.IntegrityReport, error) {
	return &models.IntegrityReport{}, nil
}

func TestDatabaseHandlerExportAndImport(t *testing.T) {
	stub := &databaseServiceStub{}
	h := NewDatabaseHandler(stub)

	c, w := newGinContext(http.MethodGet, "/admin/database/export", nil)
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"cmp_users":[]}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "clinical-rotation-backup-")

	c, w = newGinContext(http.MethodPost, "/admin/database/import", bytes.NewBufferString(`{"cmp_users":[]}`))
	h.Import(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"cmp_users":[]}`, string(stub.imported))

	c, w = newGinContext(http.MethodPost, "/admin/database/reset", nil)
	h.Reset(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStudentHandlerSearchRequiresQuery(t *testing.T) {
	h := NewStudentHandler(nil)
	c, w := newGinContext(http.MethodGet, "/students/search", nil)
	h.Search(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMeReturnsSession(t *testing.T) {
	h := NewAuthHandler(nil)
	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	withSession(c, &models.JWTClaims{UserID: "u3", Username: "sv1", Role: models.RoleStudent, RelatedID: "s1"})
	h.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"relatedId":"s1"`)
}

func TestCatalogListsDepartments(t *testing.T) {
	h := NewAuthHandler(nil)
	c, w := newGinContext(http.MethodGet, "/catalog/departments", nil)
	h.Catalog(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nội")
}
