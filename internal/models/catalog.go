package models

import "strings"

// Collection keys used by the document store.
const (
	KeyUsers         = "cmp_users"
	KeyStudents      = "cmp_students"
	KeyLecturers     = "cmp_lecturers"
	KeyAssignments   = "cmp_assignments"
	KeyRotations     = "cmp_rotations"
	KeySchedules     = "cmp_schedules"
	KeyReports       = "cmp_reports"
	KeyTeachingPlans = "cmp_teaching_plans"
	KeyExportJobs    = "cmp_export_jobs"
)

// EntityKeys lists the keys covered by database export and import.
var EntityKeys = []string{
	KeyUsers,
	KeyStudents,
	KeyLecturers,
	KeyAssignments,
	KeyRotations,
	KeySchedules,
	KeyReports,
	KeyTeachingPlans,
}

// Departments is the hospital department catalogue.
var Departments = []string{
	"Nội",
	"Ngoại",
	"Sản",
	"Nhi",
	"Nhiễm",
	"Mắt",
	"Tai Mũi Họng",
	"Răng Hàm Mặt",
	"Phục hồi chức năng",
	"Da liễu",
	"Tâm thần",
	"ICU",
	"Cấp cứu",
	"Tim mạch lão học",
}

// SubDepartments maps a main department to its specialty units.
var SubDepartments = map[string][]string{
	"Nội": {
		"Nội Tim mạch",
		"Nội Hô hấp",
		"Nội Tiêu hóa",
		"Nội Thần kinh",
		"Nội Thận - Tiết niệu",
		"Nội Cơ Xương Khớp",
		"Nội Tiết",
		"Nội Tổng hợp",
	},
	"Ngoại": {
		"Ngoại Tổng quát",
		"Ngoại Lồng ngực",
		"Ngoại Thần kinh",
		"Ngoại Chấn thương chỉnh hình",
		"Ngoại Tiết niệu",
	},
	"Sản":     {"Sản bệnh", "Phòng sanh", "Hậu phẫu", "Phụ khoa"},
	"Nhi":     {"Nhi Hô hấp", "Nhi Tiêu hóa", "Nhi Nhiễm", "Nhi Sơ sinh", "Cấp cứu Nhi"},
	"Cấp cứu": {"Cấp cứu Nội", "Cấp cứu Ngoại"},
	"ICU":     {"ICU A", "ICU B"},
}

// DepartmentCatalog is the payload served by the catalogue endpoint.
type DepartmentCatalog struct {
	Departments    []string            `json:"departments"`
	SubDepartments map[string][]string `json:"subDepartments"`
	Majors         []Major             `json:"majors"`
	Shifts         []ShiftTime         `json:"shifts"`
}

// Catalog returns the department, major and shift catalogue.
func Catalog() DepartmentCatalog {
	return DepartmentCatalog{
		Departments:    Departments,
		SubDepartments: SubDepartments,
		Majors:         Majors,
		Shifts:         Shifts,
	}
}

// IsDepartment reports whether name is a catalogued department.
func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}

// NormalizeDepartment maps free text onto the catalogue ignoring case and
// surrounding whitespace. Unknown names are returned trimmed.
func NormalizeDepartment(name string) string {
	trimmed := strings.TrimSpace(name)
	for _, d := range Departments {
		if strings.EqualFold(d, trimmed) {
			return d
		}
	}
	return trimmed
}

// SubDepartmentOf returns the main department owning sub, if any.
func SubDepartmentOf(sub string) (string, bool) {
	for main, subs := range SubDepartments {
		for _, s := range subs {
			if s == sub {
				return main, true
			}
		}
	}
	return "", false
}
