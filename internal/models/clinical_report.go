package models

// Hour multipliers applied to reported session counts.
const (
	ClinicalHoursPerSession = 1.5
	TheoryHoursPerSession   = 0.5
)

// ReportLecturerActivity is one lecturer's teaching activity for the week.
type ReportLecturerActivity struct {
	LecturerID       string `json:"lecturerId" validate:"required"`
	LecturerName     string `json:"lecturerName"`
	ClinicalSessions int    `json:"clinicalSessions" validate:"gte=0"`
	TheorySessions   int    `json:"theorySessions" validate:"gte=0"`
	TargetAudience   string `json:"targetAudience"`
}

// StudentAbsenceRecord counts the sessions a student missed.
type StudentAbsenceRecord struct {
	StudentID    string `json:"studentId" validate:"required"`
	SessionCount int    `json:"sessionCount" validate:"gte=0"`
}

// ClinicalReport is a weekly aggregate filed by a lecturer for a department.
type ClinicalReport struct {
	ID                 string                   `json:"id"`
	LecturerID         string                   `json:"lecturerId"`
	Department         string                   `json:"department"`
	Date               string                   `json:"date"`
	WeekNumber         int                      `json:"weekNumber"`
	StartDate          string                   `json:"startDate"`
	EndDate            string                   `json:"endDate"`
	LecturerActivities []ReportLecturerActivity `json:"lecturerActivities"`
	AbsentStudents     []StudentAbsenceRecord   `json:"absentStudents"`
	ClassFeedback      string                   `json:"classFeedback"`
	SkillFeedback      string                   `json:"skillFeedback"`
}

// ClinicalReportFilter narrows report listings.
type ClinicalReportFilter struct {
	Department string
	LecturerID string
	StartWeek  int
	EndWeek    int
}

// LecturerHours aggregates converted teaching hours for a lecturer.
type LecturerHours struct {
	LecturerID       string  `json:"lecturerId"`
	FullName         string  `json:"fullName"`
	Department       string  `json:"department"`
	ClinicalSessions int     `json:"clinicalSessions"`
	ClinicalHours    float64 `json:"clinicalHours"`
	TheorySessions   int     `json:"theorySessions"`
	TheoryHours      float64 `json:"theoryHours"`
	TotalHours       float64 `json:"totalHours"`
}
