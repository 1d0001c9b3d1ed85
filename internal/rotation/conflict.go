package rotation

import (
	"fmt"
	"strings"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

// ConflictSummaryLimit caps the conflicts itemised in a summary.
const ConflictSummaryLimit = 10

// Proposal is an assignment that has not been committed yet.
type Proposal struct {
	Department    string
	SubDepartment string
	Range         DateRange
	StudentIDs    []string
}

// Conflict pairs a candidate with the first existing assignment that already
// holds them during the proposed range.
type Conflict struct {
	StudentID  string
	Assignment models.Assignment
}

// ConflictChecker validates proposals against existing assignments.
type ConflictChecker struct{}

// NewConflictChecker returns a checker.
func NewConflictChecker() ConflictChecker {
	return ConflictChecker{}
}

// Check returns one conflict per clashing candidate in candidate order. A
// student already placed in any department over an overlapping range clashes.
// An empty result means the proposal is safe to commit.
func (ConflictChecker) Check(p Proposal, existing []models.Assignment) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, sid := range p.StudentIDs {
		for _, a := range existing {
			if !a.HasStudent(sid) {
				continue
			}
			if AssignmentRange(a).Overlaps(p.Range) {
				conflicts = append(conflicts, Conflict{StudentID: sid, Assignment: a})
				break
			}
		}
	}
	return conflicts
}

// ConflictDetail is the client-facing description of one conflict.
type ConflictDetail struct {
	StudentID     string `json:"studentId"`
	StudentCode   string `json:"studentCode"`
	FullName      string `json:"fullName"`
	AssignmentID  string `json:"assignmentId"`
	Department    string `json:"department"`
	SubDepartment string `json:"subDepartment,omitempty"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
}

// ConflictSummary lists the first conflicts and counts the rest.
type ConflictSummary struct {
	Total     int              `json:"total"`
	Conflicts []ConflictDetail `json:"conflicts"`
	Remaining int              `json:"remaining"`
}

// Summarize renders at most limit conflicts. Students missing from the lookup
// are reported by id.
func Summarize(conflicts []Conflict, students map[string]models.Student, limit int) ConflictSummary {
	if limit <= 0 {
		limit = ConflictSummaryLimit
	}
	summary := ConflictSummary{Total: len(conflicts), Conflicts: make([]ConflictDetail, 0, minInt(limit, len(conflicts)))}
	for idx, c := range conflicts {
		if idx >= limit {
			summary.Remaining = len(conflicts) - limit
			break
		}
		detail := ConflictDetail{
			StudentID:     c.StudentID,
			StudentCode:   c.StudentID,
			AssignmentID:  c.Assignment.ID,
			Department:    c.Assignment.Department,
			SubDepartment: c.Assignment.SubDepartment,
			StartDate:     c.Assignment.StartDate,
			EndDate:       c.Assignment.EndDate,
		}
		if s, ok := students[c.StudentID]; ok {
			detail.StudentCode = s.StudentCode
			detail.FullName = s.FullName
		}
		summary.Conflicts = append(summary.Conflicts, detail)
	}
	return summary
}

// Message renders the summary as a multi-line explanation.
func (s ConflictSummary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d student(s) already assigned in the requested period:", s.Total)
	for _, d := range s.Conflicts {
		fmt.Fprintf(&b, "\n- %s (%s): in %s (%s -> %s)", d.FullName, d.StudentCode, d.Department, d.StartDate, d.EndDate)
	}
	if s.Remaining > 0 {
		fmt.Fprintf(&b, "\n... and %d more student(s)", s.Remaining)
	}
	return b.String()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
