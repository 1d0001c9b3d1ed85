package models

// Major enumerates the training programmes students are enrolled in.
type Major string

const (
	MajorNursing             Major = "Điều dưỡng"
	MajorGeneralPractice     Major = "Y sỹ đa khoa"
	MajorTraditionalMedicine Major = "Y sỹ cổ truyền"
	MajorMidwifery           Major = "Hộ sinh"
)

// Majors lists every supported major in display order.
var Majors = []Major{MajorNursing, MajorGeneralPractice, MajorTraditionalMedicine, MajorMidwifery}

// Valid reports whether m is one of the known majors.
func (m Major) Valid() bool {
	for _, known := range Majors {
		if m == known {
			return true
		}
	}
	return false
}

// Student represents a learner doing clinical practice.
type Student struct {
	ID              string   `json:"id"`
	StudentCode     string   `json:"studentCode"`
	FullName        string   `json:"fullName"`
	ClassID         string   `json:"classId"`
	Course          string   `json:"course"`
	Major           Major    `json:"major"`
	AcademicYear    int      `json:"academicYear"`
	Group           string   `json:"group"`
	DOB             string   `json:"dob"`
	Phone           string   `json:"phone"`
	Email           string   `json:"email"`
	AttendanceScore *float64 `json:"attendanceScore,omitempty"`
	PracticeScore   *float64 `json:"practiceScore,omitempty"`
	LogbookScore    *float64 `json:"logbookScore,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	Major        string
	Course       string
	Group        string
	ClassID      string
	AcademicYear int
	Page         int
	PageSize     int
}

// CohortFilter narrows candidate pools by demographic attributes. Empty
// fields match everything.
type CohortFilter struct {
	Major  string `form:"major" json:"major,omitempty"`
	Course string `form:"course" json:"course,omitempty"`
	Group  string `form:"group" json:"group,omitempty"`
}

// Matches reports whether the student satisfies every non-empty criterion.
func (f CohortFilter) Matches(s Student) bool {
	if f.Major != "" && string(s.Major) != f.Major {
		return false
	}
	if f.Course != "" && s.Course != f.Course {
		return false
	}
	if f.Group != "" && s.Group != f.Group {
		return false
	}
	return true
}

// CohortLabel renders the "<major> - <course> (<group>)" audience label.
func (s Student) CohortLabel() string {
	return string(s.Major) + " - " + s.Course + " (" + s.Group + ")"
}
