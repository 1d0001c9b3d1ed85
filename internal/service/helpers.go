package service

import (
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

func storageError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, message)
}

func lookupError(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return storageError(err, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func paginate[T any](items []T, page, size int) ([]T, *models.Pagination) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 500 {
		size = 500
	}
	total := len(items)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return items[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func indexStudents(students []models.Student) map[string]models.Student {
	result := make(map[string]models.Student, len(students))
	for _, s := range students {
		result[s.ID] = s
	}
	return result
}

func indexLecturers(lecturers []models.Lecturer) map[string]models.Lecturer {
	result := make(map[string]models.Lecturer, len(lecturers))
	for _, l := range lecturers {
		result[l.ID] = l
	}
	return result
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// departmentOrder sorts department names by catalogue position, unknown names last.
func departmentOrder(names []string) {
	pos := make(map[string]int, len(models.Departments))
	for i, d := range models.Departments {
		pos[d] = i
	}
	rank := func(name string) int {
		if p, ok := pos[name]; ok {
			return p
		}
		return len(models.Departments)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

// validateDepartment checks dept against the catalogue and, when sub is set,
// that sub belongs to dept.
func validateDepartment(dept, sub string) error {
	if dept == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department is required")
	}
	if !models.IsDepartment(dept) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown department "+dept)
	}
	if sub == "" {
		return nil
	}
	owner, ok := models.SubDepartmentOf(sub)
	if !ok || owner != dept {
		return appErrors.Clone(appErrors.ErrValidation, "sub-department "+sub+" does not belong to "+dept)
	}
	return nil
}

// scopeDepartment applies the department a session was opened with. Sessions
// without one see what they ask for; lecturer sessions are locked to theirs.
// ScopeDepartment resolves the department a query runs against. Lecturer
// sessions bound to a department cannot read another one.
func ScopeDepartment(session models.Session, requested string) (string, error) {
	return scopeDepartment(session, requested)
}

func scopeDepartment(session models.Session, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if session.Department == "" {
		return requested, nil
	}
	if requested == "" {
		return session.Department, nil
	}
	if requested != session.Department && session.Role == models.RoleLecturer {
		return "", appErrors.Clone(appErrors.ErrForbidden, "session is limited to department "+session.Department)
	}
	return requested, nil
}

func ensureStudentAccess(session models.Session, studentID string) error {
	if !session.CanAccessStudent(studentID) {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only view their own records")
	}
	return nil
}
