package rotation

import "github.com/noah-isme/clinical-rotation-api/internal/models"

// OnCallCriteria selects candidates for a shift in one department.
type OnCallCriteria struct {
	Department string
	Date       string
	Cohort     models.CohortFilter
}

// SubRotationCriteria selects candidates for a sub-department rotation. A
// zero Range disables the date checks.
type SubRotationCriteria struct {
	MainDepartment string
	Range          DateRange
}

// EligibilityFilter derives candidate pools from snapshots.
type EligibilityFilter struct {
	assignments *AssignmentIndex
	rotations   *RotationIndex
	schedules   []models.OnCallSchedule
}

// NewEligibilityFilter wires the snapshots a filter reads from. Either index
// may be nil when the corresponding query is not used.
func NewEligibilityFilter(assignments *AssignmentIndex, rotations *RotationIndex, schedules []models.OnCallSchedule) *EligibilityFilter {
	if assignments == nil {
		assignments = NewAssignmentIndex(nil)
	}
	if rotations == nil {
		rotations = NewRotationIndex(nil, nil)
	}
	return &EligibilityFilter{assignments: assignments, rotations: rotations, schedules: schedules}
}

// ScheduledInWeek returns students holding any shift, in any department,
// during the Monday..Sunday week of date.
func (f *EligibilityFilter) ScheduledInWeek(date string) (map[string]struct{}, error) {
	week, err := WeekOf(date)
	if err != nil {
		return nil, err
	}
	busy := make(map[string]struct{})
	for _, s := range f.schedules {
		if week.Contains(s.Date) {
			busy[s.StudentID] = struct{}{}
		}
	}
	return busy, nil
}

// OnCall returns students in the department on the date who have no shift
// that week and match the cohort filter, in roster order.
func (f *EligibilityFilter) OnCall(students []models.Student, c OnCallCriteria) ([]models.Student, error) {
	busy, err := f.ScheduledInWeek(c.Date)
	if err != nil {
		return nil, err
	}
	assigned := f.assignments.StudentsAssignedTo(c.Department, c.Date)

	result := make([]models.Student, 0)
	for _, s := range students {
		if _, ok := assigned[s.ID]; !ok {
			continue
		}
		if _, ok := busy[s.ID]; ok {
			continue
		}
		if !c.Cohort.Matches(s) {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

// SubRotation returns students placed in the main department by an
// assignment without a sub-department and, when a range is given, not already
// rotating anywhere during it.
func (f *EligibilityFilter) SubRotation(students []models.Student, c SubRotationCriteria) []models.Student {
	withRange := !c.Range.IsZero()

	pool := make(map[string]struct{})
	for _, a := range f.assignments.ForDepartment(c.MainDepartment) {
		if a.Pinned() {
			continue
		}
		if withRange && !AssignmentRange(a).Overlaps(c.Range) {
			continue
		}
		for _, sid := range a.StudentIDs {
			pool[sid] = struct{}{}
		}
	}

	var busy map[string]struct{}
	if withRange {
		busy = f.rotations.BusyStudentIDs(c.Range)
	}

	result := make([]models.Student, 0)
	for _, s := range students {
		if _, ok := pool[s.ID]; !ok {
			continue
		}
		if _, ok := busy[s.ID]; ok {
			continue
		}
		result = append(result, s)
	}
	return result
}
