package models

// Assignment sends a cohort of students to a department for a date range,
// optionally pinning them to a sub-department.
type Assignment struct {
	ID            string   `json:"id"`
	Department    string   `json:"department"`
	SubDepartment string   `json:"subDepartment,omitempty"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	StudentIDs    []string `json:"studentIds"`
	LecturerID    string   `json:"lecturerId,omitempty"`
	Name          string   `json:"name,omitempty"`
}

// HasStudent reports whether the assignment lists studentID.
func (a Assignment) HasStudent(studentID string) bool {
	for _, id := range a.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// Pinned reports whether the assignment already fixes a sub-department.
func (a Assignment) Pinned() bool {
	return a.SubDepartment != ""
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	Department string
	StudentID  string
	StartDate  string
	EndDate    string
}
