package models

// Lecturer represents a clinical instructor attached to a home department.
type Lecturer struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// LecturerFilter narrows lecturer listings.
type LecturerFilter struct {
	Department string
	Search     string
}
