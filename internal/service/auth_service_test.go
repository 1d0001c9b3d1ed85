package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	"github.com/noah-isme/clinical-rotation-api/internal/repository"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type usersStub struct {
	users []models.User
	err   error
}

func (s usersStub) GetAll(ctx context.Context) ([]models.User, error) {
	return s.users, s.err
}

func newAuthService(repo authUserRepository) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "test"})
}

func TestAuthServiceLoginIsCaseInsensitive(t *testing.T) {
	svc := newAuthService(usersStub{users: repository.DefaultUsers()})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "  GV1 ", Department: "Nội"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.Session{
		UserID: "u2", Username: "gv1", FullName: "BS. Nguyễn Văn A",
		Role: models.RoleLecturer, RelatedID: "l1", Department: "Nội",
	}, resp.Session)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Session, claims.Session())
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := newAuthService(usersStub{users: repository.DefaultUsers()})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nobody"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := newAuthService(usersStub{users: repository.DefaultUsers()})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "gv1", Department: "Khoa X"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceLoginStorageFailure(t *testing.T) {
	svc := newAuthService(usersStub{err: errors.New("decode cmp_users: bad json")})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin"})
	assert.ErrorIs(t, err, appErrors.ErrStorage)
}

func TestAuthServiceRejectsForeignOrExpiredTokens(t *testing.T) {
	svc := newAuthService(usersStub{users: repository.DefaultUsers()})
	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "sv1"})
	require.NoError(t, err)

	other := NewAuthService(usersStub{}, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
