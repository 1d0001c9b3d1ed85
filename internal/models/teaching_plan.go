package models

// TeachingPlan is a scheduled lecture given by a lecturer in a department.
type TeachingPlan struct {
	ID             string `json:"id"`
	LecturerID     string `json:"lecturerId"`
	LecturerName   string `json:"lecturerName"`
	Department     string `json:"department"`
	Date           string `json:"date"`
	Topic          string `json:"topic"`
	TargetAudience string `json:"targetAudience"`
	Room           string `json:"room"`
}

// TeachingPlanFilter narrows teaching plan listings.
type TeachingPlanFilter struct {
	Department string
	LecturerID string
	StartDate  string
	EndDate    string
}
