package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

func roster() []models.Student {
	return []models.Student{
		{ID: "s1", StudentCode: "Y2020001", Major: models.MajorGeneralPractice, Course: "K46", Group: "Nhom1"},
		{ID: "s2", StudentCode: "Y2020002", Major: models.MajorGeneralPractice, Course: "K46", Group: "Nhom1"},
		{ID: "s3", StudentCode: "DD21001", Major: models.MajorNursing, Course: "K47", Group: "Nhom2"},
	}
}

func ids(students []models.Student) []string {
	result := make([]string, 0, len(students))
	for _, s := range students {
		result = append(result, s.ID)
	}
	return result
}

func TestOnCallExcludesStudentsScheduledThatWeekInAnyDepartment(t *testing.T) {
	assignments := NewAssignmentIndex([]models.Assignment{
		{ID: "a1", Department: "Nội", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s1", "s2", "s3"}},
	})
	schedules := []models.OnCallSchedule{
		{ID: "o1", StudentID: "s1", Department: "Ngoại", Date: "2024-03-11", Shift: models.ShiftMorning},
	}
	filter := NewEligibilityFilter(assignments, nil, schedules)

	got, err := filter.OnCall(roster(), OnCallCriteria{Department: "Nội", Date: "2024-03-17"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s3"}, ids(got))

	got, err = filter.OnCall(roster(), OnCallCriteria{Department: "Nội", Date: "2024-03-18"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(got))
}

func TestOnCallRequiresAssignmentOnDateAndCohort(t *testing.T) {
	assignments := NewAssignmentIndex([]models.Assignment{
		{ID: "a1", Department: "Nội", StartDate: "2024-03-01", EndDate: "2024-03-10", StudentIDs: []string{"s1", "s3"}},
		{ID: "a2", Department: "Ngoại", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s2"}},
	})
	filter := NewEligibilityFilter(assignments, nil, nil)

	got, err := filter.OnCall(roster(), OnCallCriteria{Department: "Nội", Date: "2024-03-05"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, ids(got))

	got, err = filter.OnCall(roster(), OnCallCriteria{Department: "Nội", Date: "2024-03-05", Cohort: models.CohortFilter{Major: string(models.MajorNursing)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, ids(got))

	got, err = filter.OnCall(roster(), OnCallCriteria{Department: "Nội", Date: "2024-03-11"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = filter.OnCall(roster(), OnCallCriteria{Department: "Nội", Date: "bad"})
	assert.Error(t, err)
}

func TestSubRotationPool(t *testing.T) {
	raw := []models.Assignment{
		{ID: "a1", Department: "Nội", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s1", "s2"}},
		{ID: "a2", Department: "Nội", SubDepartment: "Nội Tim mạch", StartDate: "2024-03-01", EndDate: "2024-03-31", StudentIDs: []string{"s3"}},
	}
	stored := []models.ClinicalRotation{
		{ID: "r1", MainDepartment: "Nội", SubDepartment: "Nội Tiết", StudentID: "s2", StartDate: "2024-03-05", EndDate: "2024-03-08"},
	}
	filter := NewEligibilityFilter(NewAssignmentIndex(raw), NewRotationIndex(stored, raw), nil)

	got := filter.SubRotation(roster(), SubRotationCriteria{MainDepartment: "Nội"})
	assert.Equal(t, []string{"s1", "s2"}, ids(got))

	got = filter.SubRotation(roster(), SubRotationCriteria{MainDepartment: "Nội", Range: NewDateRange("2024-03-06", "2024-03-07")})
	assert.Equal(t, []string{"s1"}, ids(got))

	got = filter.SubRotation(roster(), SubRotationCriteria{MainDepartment: "Nội", Range: NewDateRange("2024-04-01", "2024-04-07")})
	assert.Empty(t, got)
}

func TestStudentsAssignedTo(t *testing.T) {
	idx := NewAssignmentIndex([]models.Assignment{
		{ID: "a1", Department: "Nội", StartDate: "2024-03-01", EndDate: "2024-03-10", StudentIDs: []string{"s1"}},
		{ID: "a2", Department: "Nội", SubDepartment: "Nội Tiết", StartDate: "2024-03-05", EndDate: "2024-03-20", StudentIDs: []string{"s2"}},
		{ID: "a3", Department: "Ngoại", StartDate: "2024-03-01", EndDate: "2024-03-20", StudentIDs: []string{"s3"}},
	})

	assert.Equal(t, map[string]struct{}{"s1": {}, "s2": {}}, idx.StudentsAssignedTo("Nội", "2024-03-10"))
	assert.Equal(t, map[string]struct{}{"s2": {}}, idx.StudentsAssignedTo("Nội", "2024-03-11"))
	assert.Len(t, idx.ForDepartment("Nội"), 2)
	assert.Len(t, idx.CoveringStudent("s3"), 1)
	assert.Equal(t, []string{"Ngoại"}, idx.Departments("s3"))
}
