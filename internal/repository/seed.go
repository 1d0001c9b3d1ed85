package repository

import "github.com/noah-isme/clinical-rotation-api/internal/models"

// DefaultUsers returns the demo accounts.
func DefaultUsers() []models.User {
	return []models.User{
		{ID: "u1", Username: "admin", FullName: "Quản trị viên", Role: models.RoleAdmin},
		{ID: "u2", Username: "gv1", FullName: "BS. Nguyễn Văn A", Role: models.RoleLecturer, RelatedID: "l1"},
		{ID: "u3", Username: "sv1", FullName: "Trần Thị B", Role: models.RoleStudent, RelatedID: "s1"},
	}
}

// DefaultStudents returns the demo roster.
func DefaultStudents() []models.Student {
	return []models.Student{
		{ID: "s1", StudentCode: "Y2020001", FullName: "Trần Thị B", ClassID: "YK20A", Course: "K46", Major: models.MajorGeneralPractice, AcademicYear: 3, Group: "Nhom1", DOB: "2002-01-15", Phone: "0901234567", Email: "b@sv.edu.vn"},
		{ID: "s2", StudentCode: "Y2020002", FullName: "Lê Văn C", ClassID: "YK20A", Course: "K46", Major: models.MajorGeneralPractice, AcademicYear: 3, Group: "Nhom1", DOB: "2002-03-20", Phone: "0901234568", Email: "c@sv.edu.vn"},
		{ID: "s3", StudentCode: "DD21001", FullName: "Nguyễn Thị H", ClassID: "DD21B", Course: "K47", Major: models.MajorNursing, AcademicYear: 2, Group: "Nhom2", DOB: "2003-05-10", Phone: "0901234569", Email: "h@sv.edu.vn"},
		{ID: "s4", StudentCode: "YS22005", FullName: "Phạm Văn K", ClassID: "YS22C", Course: "K48", Major: models.MajorTraditionalMedicine, AcademicYear: 1, Group: "Nhom3", DOB: "2004-08-12", Phone: "0901234570", Email: "k@sv.edu.vn"},
		{ID: "s5", StudentCode: "HS22001", FullName: "Lê Thị M", ClassID: "HS22A", Course: "K48", Major: models.MajorMidwifery, AcademicYear: 1, Group: "Nhom3", DOB: "2004-02-28", Phone: "0901234571", Email: "m@sv.edu.vn"},
	}
}

// DefaultLecturers returns the demo lecturers.
func DefaultLecturers() []models.Lecturer {
	return []models.Lecturer{
		{ID: "l1", FullName: "BS. Nguyễn Văn A", Department: "Nội", Email: "a@bv.edu.vn", Phone: "0912345678"},
		{ID: "l2", FullName: "BS. Phạm Thị D", Department: "Ngoại", Email: "d@bv.edu.vn", Phone: "0912345679"},
	}
}
