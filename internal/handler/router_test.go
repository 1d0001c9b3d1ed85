package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/middleware"
	"github.com/noah-isme/clinical-rotation-api/internal/repository"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
)

func buildRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := repository.NewDocumentRepository(repository.NewMemoryDocumentStore(), 0, nil)
	repos := repository.NewRepositories(docs)
	require.NoError(t, repos.Seed(context.Background(), true))

	validate := validator.New()
	views := service.NewRotationViews(repos.Assignments, repos.Rotations)
	auth := service.NewAuthService(repos.Users, validate, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "test",
	})
	stats := service.NewStatisticsService(repos.Reports, repos.Lecturers, nil)

	handlers := Handlers{
		Auth:            NewAuthHandler(auth),
		Students:        NewStudentHandler(service.NewStudentService(repos.Students, nil, validate, nil)),
		Lecturers:       NewLecturerHandler(service.NewLecturerService(repos.Lecturers, validate, nil)),
		Assignments:     NewAssignmentHandler(service.NewAssignmentService(repos.Assignments, repos.Students, repos.Lecturers, nil, nil, validate, nil)),
		Rotations:       NewRotationHandler(service.NewRotationService(repos.Rotations, views, repos.Students, nil, validate, nil)),
		OnCall:          NewOnCallHandler(service.NewOnCallService(repos.Schedules, views, repos.Students, nil, validate, nil)),
		TeachingPlans:   NewTeachingPlanHandler(service.NewTeachingPlanService(repos.TeachingPlans, repos.Lecturers, repos.Assignments, nil, validate, nil)),
		ClinicalReports: NewClinicalReportHandler(service.NewClinicalReportService(repos.Reports, repos.Lecturers, repos.Students, repos.Assignments, repos.TeachingPlans, validate, nil)),
		Statistics:      NewStatisticsHandler(stats, nil),
		Dashboard: NewDashboardHandler(service.NewDashboardService(service.DashboardServiceParams{
			Students:  repos.Students,
			Lecturers: repos.Lecturers,
			Views:     views,
			Schedules: repos.Schedules,
			Plans:     repos.TeachingPlans,
		})),
		Database: NewDatabaseHandler(service.NewDatabaseService(service.DatabaseServiceParams{
			Documents:   docs,
			Seeder:      repos,
			Users:       repos.Users,
			Students:    repos.Students,
			Lecturers:   repos.Lecturers,
			Assignments: repos.Assignments,
			Rotations:   repos.Rotations,
			Schedules:   repos.Schedules,
			Plans:       repos.TeachingPlans,
			Reports:     repos.Reports,
		})),
		Metrics: NewMetricsHandler(service.NewMetricsService()),
	}

	router := gin.New()
	handlers.Register(router.Group("/api/v1"), middleware.JWT(auth))
	return router
}

func login(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	w := call(router, http.MethodPost, "/api/v1/auth/login", "", `{"username":"`+username+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)
	return envelope.Data.AccessToken
}

func call(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesLogin(t *testing.T) {
	router := buildRouter(t)

	token := login(t, router, "  ADMIN ")
	w := call(router, http.MethodGet, "/api/v1/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	w = call(router, http.MethodPost, "/api/v1/auth/login", "", `{"username":"nobody"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(router, http.MethodGet, "/api/v1/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutesEnforceRoles(t *testing.T) {
	router := buildRouter(t)
	admin := login(t, router, "admin")
	lecturer := login(t, router, "gv1")
	student := login(t, router, "sv1")

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/students", admin, "").Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/students", lecturer, "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/v1/students", student, "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodDelete, "/api/v1/students/s2", lecturer, "").Code)

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/students/search?q=Y2020001", student, "").Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/rotations/students/s1", student, "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/v1/rotations/students/s2", student, "").Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/dashboard/students/s1", student, "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/v1/dashboard/admin", student, "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/v1/admin/integrity/orphans", lecturer, "").Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/admin/metrics", admin, "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/v1/statistics/teaching-hours", student, "").Code)
}

func TestRoutesAssignmentConflict(t *testing.T) {
	router := buildRouter(t)
	admin := login(t, router, "admin")

	first := `{"department":"Nội","startDate":"2024-01-01","endDate":"2024-01-31","studentIds":["s1","s2"]}`
	w := call(router, http.MethodPost, "/api/v1/assignments", admin, first)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	overlapping := `{"department":"Ngoại","startDate":"2024-01-15","endDate":"2024-02-15","studentIds":["s1"]}`
	w = call(router, http.MethodPost, "/api/v1/assignments/check", admin, overlapping)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	w = call(router, http.MethodPost, "/api/v1/assignments", admin, overlapping)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Y2020001")

	w = call(router, http.MethodGet, "/api/v1/assignments?department=Ngoại", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestRoutesSignedDownloadNeedsNoSession(t *testing.T) {
	router := buildRouter(t)

	w := call(router, http.MethodGet, "/api/v1/export/anything", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "exports are disabled")
}

func TestRoutesDatabaseRoundTrip(t *testing.T) {
	router := buildRouter(t)
	admin := login(t, router, "admin")

	exported := call(router, http.MethodGet, "/api/v1/admin/database/export", admin, "")
	require.Equal(t, http.StatusOK, exported.Code)

	w := call(router, http.MethodPost, "/api/v1/admin/database/import", admin, exported.Body.String())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	again := call(router, http.MethodGet, "/api/v1/admin/database/export", admin, "")
	assert.Equal(t, exported.Body.String(), again.Body.String())
}
