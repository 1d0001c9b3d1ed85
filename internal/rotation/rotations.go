package rotation

import (
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

// SyntheticPrefix marks rotations derived from sub-department assignments.
const SyntheticPrefix = "ADMIN_ASSIGN_"

// SyntheticID builds the id of the rotation derived for one student of an
// assignment.
func SyntheticID(assignmentID, studentID string) string {
	return SyntheticPrefix + assignmentID + "_" + studentID
}

// IsSynthetic reports whether id names a derived rotation.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticPrefix)
}

// RotationIndex is the combined view of stored rotations and the rotations
// implied by assignments that pin a sub-department.
type RotationIndex struct {
	stored      []models.ClinicalRotation
	assignments []models.Assignment

	once     sync.Once
	combined []models.ClinicalRotation
}

// NewRotationIndex wraps both source snapshots.
func NewRotationIndex(stored []models.ClinicalRotation, assignments []models.Assignment) *RotationIndex {
	return &RotationIndex{stored: stored, assignments: assignments}
}

// Combined returns stored rotations followed by derived ones. The result is
// computed once per index.
func (i *RotationIndex) Combined() []models.ClinicalRotation {
	i.once.Do(func() {
		combined := make([]models.ClinicalRotation, 0, len(i.stored))
		combined = append(combined, i.stored...)
		combined = append(combined, DeriveRotations(i.assignments)...)
		i.combined = combined
	})
	return i.combined
}

// DeriveRotations expands every pinned assignment into one rotation per
// listed student.
func DeriveRotations(assignments []models.Assignment) []models.ClinicalRotation {
	result := make([]models.ClinicalRotation, 0)
	for _, a := range assignments {
		if !a.Pinned() {
			continue
		}
		for _, sid := range a.StudentIDs {
			result = append(result, models.ClinicalRotation{
				ID:             SyntheticID(a.ID, sid),
				MainDepartment: a.Department,
				SubDepartment:  a.SubDepartment,
				StudentID:      sid,
				StartDate:      a.StartDate,
				EndDate:        a.EndDate,
			})
		}
	}
	return result
}

// Stored returns the persisted rotations only.
func (i *RotationIndex) Stored() []models.ClinicalRotation {
	return i.stored
}

// ForMainDepartment filters the combined view by main department.
func (i *RotationIndex) ForMainDepartment(dept string) []models.ClinicalRotation {
	result := make([]models.ClinicalRotation, 0)
	for _, r := range i.Combined() {
		if r.MainDepartment == dept {
			result = append(result, r)
		}
	}
	return result
}

// ForStudent returns a student's rotations ordered by start date.
func (i *RotationIndex) ForStudent(studentID string) []models.ClinicalRotation {
	result := make([]models.ClinicalRotation, 0)
	for _, r := range i.Combined() {
		if r.StudentID == studentID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].StartDate < result[b].StartDate
	})
	return result
}

// BusyStudentIDs returns students holding any rotation overlapping rng.
func (i *RotationIndex) BusyStudentIDs(rng DateRange) map[string]struct{} {
	result := make(map[string]struct{})
	for _, r := range i.Combined() {
		if RotationRange(r).Overlaps(rng) {
			result[r.StudentID] = struct{}{}
		}
	}
	return result
}

// CurrentSubDepartment resolves where a student sits inside mainDept during
// asOf, picking among rotations overlapping it. Manual rotations win over
// derived ones; then the latest start date; then the smallest id.
func (i *RotationIndex) CurrentSubDepartment(studentID, mainDept string, asOf DateRange) (string, bool) {
	var (
		best  models.ClinicalRotation
		found bool
	)
	for _, r := range i.Combined() {
		if r.StudentID != studentID || r.MainDepartment != mainDept || !RotationRange(r).Overlaps(asOf) {
			continue
		}
		if !found || preferRotation(r, best) {
			best = r
			found = true
		}
	}
	if !found {
		return "", false
	}
	return best.SubDepartment, true
}

func preferRotation(candidate, current models.ClinicalRotation) bool {
	candidateManual := !IsSynthetic(candidate.ID)
	currentManual := !IsSynthetic(current.ID)
	if candidateManual != currentManual {
		return candidateManual
	}
	if candidate.StartDate != current.StartDate {
		return candidate.StartDate > current.StartDate
	}
	return candidate.ID < current.ID
}

// Fingerprint identifies the source snapshots a RotationIndex was built from.
// Each field is the version counter of the corresponding collection.
type Fingerprint struct {
	Rotations   uint64
	Assignments uint64
}

// Projection memoizes the combined rotation view across requests and drops it
// as soon as either source collection changes.
type Projection struct {
	mu    sync.Mutex
	fp    Fingerprint
	index *RotationIndex
}

// NewProjection returns an empty projection.
func NewProjection() *Projection {
	return &Projection{}
}

// Index returns the memoized index when fp matches the cached fingerprint and
// otherwise builds a new one from the supplied snapshots.
func (p *Projection) Index(fp Fingerprint, stored []models.ClinicalRotation, assignments []models.Assignment) *RotationIndex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index != nil && p.fp == fp {
		return p.index
	}
	p.fp = fp
	p.index = NewRotationIndex(stored, assignments)
	return p.index
}

// Invalidate drops the memoized index.
func (p *Projection) Invalidate() {
	p.mu.Lock()
	p.index = nil
	p.mu.Unlock()
}
