package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/models"
	"helpdesk/internal/repository"
	"helpdesk/internal/repository/memory"
	"helpdesk/internal/utils"
)

func newService(t *testing.T) *AuthService {
	t.Helper()
	utils.HashCost = 4
	return NewAuthService(memory.New().Repos().Users, "test-secret")
}

func TestRegisterIsAlwaysCustomer(t *testing.T) {
	svc := newService(t)
	u, err := svc.Register(context.Background(), "a@b.c", "Al", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.NotZero(t, u.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "a@b.c", "Al", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "A@B.C", "Al again", "secret2")
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestRegisterInvalidInput(t *testing.T) {
	svc := newService(t)
	_, err := svc.Register(context.Background(), "a@b.c", "Al", "123")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateUser(context.Background(), "x@y.z", "X", "secret1", models.Role("root"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, "ann@desk.io", "Ann", "secret1", models.RoleAgent)
	require.NoError(t, err)

	tok, u, err := svc.Login(ctx, "ann@desk.io", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, models.RoleAgent, u.Role)

	claims, err := utils.ParseJWT("test-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, err = svc.Login(ctx, "ann@desk.io", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@desk.io", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAdmin(ctx, "root@desk.io", "Root", "rootpw1"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@desk.io", "Root", "rootpw1"))
}
