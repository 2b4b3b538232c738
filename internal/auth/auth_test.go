package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pzielke/todolists/internal/domain"
)

type fakeUsers struct {
	user *domain.User
}

func (f *fakeUsers) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if f.user == nil || f.user.Username != username {
		return nil, domain.ErrInvalidCredentials
	}
	return f.user, nil
}

func newTestService(t *testing.T, username, password string) *Service {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return NewService(&fakeUsers{user: &domain.User{ID: 42, Username: username, PasswordHash: hash}})
}

func TestSignInAndResolve(t *testing.T) {
	svc := newTestService(t, "admin", "secret")

	token, err := svc.SignIn(context.Background(), "admin", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, ok := svc.Resolve(token)
	assert.True(t, ok)
	assert.Equal(t, uint(42), userID)

	// Each sign-in mints a distinct session.
	token2, err := svc.SignIn(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, "admin", "secret")

	_, err := svc.SignIn(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SignIn(context.Background(), "nobody", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSignOut(t *testing.T) {
	svc := newTestService(t, "admin", "secret")

	token, err := svc.SignIn(context.Background(), "admin", "secret")
	require.NoError(t, err)

	svc.SignOut(token)
	_, ok := svc.Resolve(token)
	assert.False(t, ok)

	// Unknown tokens are ignored.
	svc.SignOut("never-issued")
}
