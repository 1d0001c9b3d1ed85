package rotation

import "github.com/noah-isme/clinical-rotation-api/internal/models"

// AssignmentIndex answers department-level questions over one snapshot of
// assignments. It never mutates the snapshot.
type AssignmentIndex struct {
	items []models.Assignment
}

// NewAssignmentIndex wraps a snapshot.
func NewAssignmentIndex(items []models.Assignment) *AssignmentIndex {
	return &AssignmentIndex{items: items}
}

// All returns the snapshot in storage order.
func (i *AssignmentIndex) All() []models.Assignment {
	return i.items
}

// ForDepartment returns assignments whose main department is dept.
func (i *AssignmentIndex) ForDepartment(dept string) []models.Assignment {
	result := make([]models.Assignment, 0)
	for _, a := range i.items {
		if a.Department == dept {
			result = append(result, a)
		}
	}
	return result
}

// CoveringStudent returns every assignment that lists studentID.
func (i *AssignmentIndex) CoveringStudent(studentID string) []models.Assignment {
	result := make([]models.Assignment, 0)
	for _, a := range i.items {
		if a.HasStudent(studentID) {
			result = append(result, a)
		}
	}
	return result
}

// StudentsAssignedTo returns students placed in dept on the given date.
func (i *AssignmentIndex) StudentsAssignedTo(dept, onDate string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, a := range i.items {
		if a.Department != dept || !AssignmentRange(a).Contains(onDate) {
			continue
		}
		for _, id := range a.StudentIDs {
			result[id] = struct{}{}
		}
	}
	return result
}

// StudentsEverAssignedTo returns students placed in dept by any assignment.
func (i *AssignmentIndex) StudentsEverAssignedTo(dept string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, a := range i.ForDepartment(dept) {
		for _, id := range a.StudentIDs {
			result[id] = struct{}{}
		}
	}
	return result
}

// Departments returns the distinct main departments studentID has been
// assigned to, in first-seen order.
func (i *AssignmentIndex) Departments(studentID string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, a := range i.CoveringStudent(studentID) {
		if _, ok := seen[a.Department]; ok {
			continue
		}
		seen[a.Department] = struct{}{}
		result = append(result, a.Department)
	}
	return result
}
