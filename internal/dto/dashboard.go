package dto

import "github.com/noah-isme/clinical-rotation-api/internal/models"

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	Date              string               `json:"date"`
	TotalStudents     int                  `json:"totalStudents"`
	TotalLecturers    int                  `json:"totalLecturers"`
	ActiveAssignments int                  `json:"activeAssignments"`
	ShiftsToday       int                  `json:"shiftsToday"`
	Departments       []DepartmentActivity `json:"departments"`
}

// DepartmentActivity counts students placed in a department today.
type DepartmentActivity struct {
	Department     string `json:"department"`
	ActiveStudents int    `json:"activeStudents"`
}

// StudentDashboardResponse is the two-week overview shown to a student.
type StudentDashboardResponse struct {
	Student       models.Student            `json:"student"`
	WindowStart   string                    `json:"windowStart"`
	WindowEnd     string                    `json:"windowEnd"`
	Assignments   []models.Assignment       `json:"assignments"`
	Rotations     []models.ClinicalRotation `json:"rotations"`
	OnCall        []models.OnCallSchedule   `json:"onCall"`
	TeachingPlans []models.TeachingPlan     `json:"teachingPlans"`
	Placements    []Placement               `json:"placements"`
}

// Placement names the sub-department a student occupies within one of their
// assigned departments during the dashboard window.
type Placement struct {
	Department    string `json:"department"`
	SubDepartment string `json:"subDepartment"`
}
