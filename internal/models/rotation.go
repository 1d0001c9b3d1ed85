package models

// ClinicalRotation places one student in a sub-department for a date range.
type ClinicalRotation struct {
	ID             string `json:"id"`
	MainDepartment string `json:"mainDepartment"`
	SubDepartment  string `json:"subDepartment"`
	StudentID      string `json:"studentId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}
