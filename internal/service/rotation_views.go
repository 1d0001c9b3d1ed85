package service

import (
	"context"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/rotation"
)

type assignmentSnapshotter interface {
	Snapshot(ctx context.Context) ([]models.Assignment, uint64, error)
}

type rotationSnapshotter interface {
	Snapshot(ctx context.Context) ([]models.ClinicalRotation, uint64, error)
}

// RotationViews rebuilds the engine indexes from fresh snapshots and reuses
// the combined rotation projection while neither source has changed.
type RotationViews struct {
	assignments assignmentSnapshotter
	rotations   rotationSnapshotter
	projection  *rotation.Projection
}

// NewRotationViews constructs the shared view loader.
func NewRotationViews(assignments assignmentSnapshotter, rotations rotationSnapshotter) *RotationViews {
	return &RotationViews{assignments: assignments, rotations: rotations, projection: rotation.NewProjection()}
}

// Load returns indexes over the current contents of both collections.
func (v *RotationViews) Load(ctx context.Context) (*rotation.AssignmentIndex, *rotation.RotationIndex, error) {
	assignments, av, err := v.assignments.Snapshot(ctx)
	if err != nil {
		return nil, nil, storageError(err, "failed to load assignments")
	}
	stored, rv, err := v.rotations.Snapshot(ctx)
	if err != nil {
		return nil, nil, storageError(err, "failed to load rotations")
	}
	index := v.projection.Index(rotation.Fingerprint{Rotations: rv, Assignments: av}, stored, assignments)
	return rotation.NewAssignmentIndex(assignments), index, nil
}
