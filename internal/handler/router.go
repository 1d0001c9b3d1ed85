package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinical-rotation-api/internal/middleware"
	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

var (
	adminOnly = middleware.RequireRoles(models.RoleAdmin)
	staff     = middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer)
	anyRole   = middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer, models.RoleStudent)
	staffSelf = middleware.RBAC(string(models.RoleAdmin), string(models.RoleLecturer), middleware.Self)
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth            *AuthHandler
	Students        *StudentHandler
	Lecturers       *LecturerHandler
	Assignments     *AssignmentHandler
	Rotations       *RotationHandler
	OnCall          *OnCallHandler
	TeachingPlans   *TeachingPlanHandler
	ClinicalReports *ClinicalReportHandler
	Statistics      *StatisticsHandler
	Dashboard       *DashboardHandler
	Database        *DatabaseHandler
	Metrics         *MetricsHandler
}

// Register mounts the API routes on group. authn authenticates every route
// except login and signed downloads.
func (h Handlers) Register(group *gin.RouterGroup, authn gin.HandlerFunc) {
	group.POST("/auth/login", h.Auth.Login)
	group.GET("/export/:token", h.Statistics.Download)

	api := group.Group("")
	api.Use(authn)

	api.GET("/auth/me", anyRole, h.Auth.Me)
	api.GET("/catalog/departments", anyRole, h.Auth.Catalog)

	students := api.Group("/students")
	students.GET("", staff, h.Students.List)
	students.GET("/search", anyRole, h.Students.Search)
	students.GET("/template", adminOnly, h.Students.Template)
	students.POST("/import", adminOnly, h.Students.Import)
	students.POST("", adminOnly, h.Students.Create)
	students.GET("/:id", staff, h.Students.Get)
	students.PUT("/:id", adminOnly, h.Students.Update)
	students.DELETE("/:id", adminOnly, h.Students.Delete)

	lecturers := api.Group("/lecturers")
	lecturers.GET("", staff, h.Lecturers.List)
	lecturers.GET("/template", adminOnly, h.Lecturers.Template)
	lecturers.POST("/import", adminOnly, h.Lecturers.Import)
	lecturers.POST("", adminOnly, h.Lecturers.Create)
	lecturers.GET("/:id", staff, h.Lecturers.Get)
	lecturers.PUT("/:id", adminOnly, h.Lecturers.Update)
	lecturers.DELETE("/:id", adminOnly, h.Lecturers.Delete)

	assignments := api.Group("/assignments")
	assignments.GET("", staff, h.Assignments.List)
	assignments.GET("/overview", staff, h.Assignments.Overview)
	assignments.POST("", adminOnly, h.Assignments.Create)
	assignments.POST("/check", adminOnly, h.Assignments.Check)
	assignments.DELETE("/:id", adminOnly, h.Assignments.Delete)

	rotations := api.Group("/rotations")
	rotations.GET("", staff, h.Rotations.List)
	rotations.GET("/available", staff, h.Rotations.Available)
	rotations.GET("/students/:studentId", staffSelf, h.Rotations.ForStudent)
	rotations.POST("", staff, h.Rotations.Create)
	rotations.DELETE("/:id", staff, h.Rotations.Delete)

	oncall := api.Group("/oncall")
	oncall.GET("", staff, h.OnCall.List)
	oncall.GET("/available", staff, h.OnCall.Available)
	oncall.GET("/students/:studentId", staffSelf, h.OnCall.ForStudent)
	oncall.POST("", staff, h.OnCall.Create)
	oncall.POST("/:id/check-in", anyRole, h.OnCall.CheckIn)
	oncall.DELETE("/:id", staff, h.OnCall.Delete)

	plans := api.Group("/teaching-plans")
	plans.GET("", anyRole, h.TeachingPlans.List)
	plans.GET("/students/:studentId", staffSelf, h.TeachingPlans.ForStudent)
	plans.POST("", staff, h.TeachingPlans.Create)
	plans.PUT("/:id", staff, h.TeachingPlans.Update)
	plans.DELETE("/:id", staff, h.TeachingPlans.Delete)

	reports := api.Group("/clinical-reports")
	reports.GET("", staff, h.ClinicalReports.List)
	reports.GET("/candidates", staff, h.ClinicalReports.Candidates)
	reports.POST("", staff, h.ClinicalReports.Create)

	stats := api.Group("/statistics")
	stats.GET("/teaching-hours", staff, h.Statistics.TeachingHours)
	stats.GET("/teaching-hours.xlsx", staff, h.Statistics.TeachingHoursWorkbook)
	stats.POST("/exports", staff, h.Statistics.CreateExport)
	stats.GET("/exports/:id", staff, h.Statistics.ExportStatus)

	dashboard := api.Group("/dashboard")
	dashboard.GET("/admin", adminOnly, h.Dashboard.Admin)
	dashboard.GET("/students/:studentId", staffSelf, h.Dashboard.Student)

	admin := api.Group("/admin", adminOnly)
	admin.GET("/database/export", h.Database.Export)
	admin.POST("/database/import", h.Database.Import)
	admin.POST("/database/reset", h.Database.Reset)
	admin.GET("/integrity/orphans", h.Database.Orphans)
	admin.GET("/metrics", h.Metrics.Summary)
}
