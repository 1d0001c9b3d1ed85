package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/repository"
)

func newTestRepositories(t *testing.T) *repository.Repositories {
	t.Helper()
	docs := repository.NewDocumentRepository(repository.NewMemoryDocumentStore(), 0, nil)
	repos := repository.NewRepositories(docs)
	require.NoError(t, repos.Seed(context.Background(), true))
	return repos
}

func adminSession() models.Session {
	return models.Session{UserID: "u1", Username: "admin", Role: models.RoleAdmin}
}

func lecturerSession(department string) models.Session {
	return models.Session{UserID: "u2", Username: "gv1", Role: models.RoleLecturer, RelatedID: "l1", Department: department}
}

func studentSession(studentID string) models.Session {
	return models.Session{UserID: "u3", Username: "sv1", Role: models.RoleStudent, RelatedID: studentID}
}

func seedAssignments(t *testing.T, repos *repository.Repositories, items ...models.Assignment) {
	t.Helper()
	_, err := repos.Assignments.Append(context.Background(), items...)
	require.NoError(t, err)
}
