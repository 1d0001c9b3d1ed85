package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
)

// Repositories bundles the typed collections of the application.
type Repositories struct {
	Documents     *DocumentRepository
	Users         *Collection[models.User]
	Students      *Collection[models.Student]
	Lecturers     *Collection[models.Lecturer]
	Assignments   *Collection[models.Assignment]
	Rotations     *Collection[models.ClinicalRotation]
	Schedules     *Collection[models.OnCallSchedule]
	Reports       *Collection[models.ClinicalReport]
	TeachingPlans *Collection[models.TeachingPlan]
	ExportJobs    *ExportJobRepository
}

// NewRepositories binds every collection to docs.
func NewRepositories(docs *DocumentRepository) *Repositories {
	return &Repositories{
		Documents:     docs,
		Users:         NewCollection(docs, models.KeyUsers, func(u *models.User) *string { return &u.ID }),
		Students:      NewCollection(docs, models.KeyStudents, func(s *models.Student) *string { return &s.ID }),
		Lecturers:     NewCollection(docs, models.KeyLecturers, func(l *models.Lecturer) *string { return &l.ID }),
		Assignments:   NewCollection(docs, models.KeyAssignments, func(a *models.Assignment) *string { return &a.ID }),
		Rotations:     NewCollection(docs, models.KeyRotations, func(r *models.ClinicalRotation) *string { return &r.ID }),
		Schedules:     NewCollection(docs, models.KeySchedules, func(s *models.OnCallSchedule) *string { return &s.ID }),
		Reports:       NewCollection(docs, models.KeyReports, func(r *models.ClinicalReport) *string { return &r.ID }),
		TeachingPlans: NewCollection(docs, models.KeyTeachingPlans, func(p *models.TeachingPlan) *string { return &p.ID }),
		ExportJobs:    NewExportJobRepository(docs),
	}
}

// Seed creates every missing collection. When withDefaults is set the user,
// student and lecturer collections start with the demo records.
func (r *Repositories) Seed(ctx context.Context, withDefaults bool) error {
	var (
		users     []models.User
		students  []models.Student
		lecturers []models.Lecturer
	)
	if withDefaults {
		users = DefaultUsers()
		students = DefaultStudents()
		lecturers = DefaultLecturers()
	}

	steps := []struct {
		key  string
		seed func() (bool, error)
	}{
		{models.KeyUsers, func() (bool, error) { return r.Users.Seed(ctx, users) }},
		{models.KeyStudents, func() (bool, error) { return r.Students.Seed(ctx, students) }},
		{models.KeyLecturers, func() (bool, error) { return r.Lecturers.Seed(ctx, lecturers) }},
		{models.KeyAssignments, func() (bool, error) { return r.Assignments.Seed(ctx, nil) }},
		{models.KeyRotations, func() (bool, error) { return r.Rotations.Seed(ctx, nil) }},
		{models.KeySchedules, func() (bool, error) { return r.Schedules.Seed(ctx, nil) }},
		{models.KeyReports, func() (bool, error) { return r.Reports.Seed(ctx, nil) }},
		{models.KeyTeachingPlans, func() (bool, error) { return r.TeachingPlans.Seed(ctx, nil) }},
		{models.KeyExportJobs, func() (bool, error) { return r.ExportJobs.jobs.Seed(ctx, nil) }},
	}
	for _, step := range steps {
		if _, err := step.seed(); err != nil {
			return fmt.Errorf("seed %s: %w", step.key, err)
		}
	}
	return nil
}
