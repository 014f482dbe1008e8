package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/identity"
	"github.com/nhle/leadboard/tests/testutil"
)

func TestLocal_SignupLoginLogout(t *testing.T) {
	ctx := context.Background()
	sessions := &identity.MemorySessionStore{}
	p := identity.NewLocal(testutil.NewTestStore(t), sessions)

	_, err := p.CurrentUser(ctx)
	assert.ErrorIs(t, err, identity.ErrNoSession)

	sess, err := p.Signup(ctx, "Asha", "asha@example.com", "correct horse")
	require.NoError(t, err)
	assert.Len(t, sess.Secret, 64)

	stored, _ := sessions.Load()
	assert.Equal(t, sess.Secret, stored)

	u, err := p.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, sess.UserID, u.ID)

	require.NoError(t, p.Logout(ctx))
	_, err = p.CurrentUser(ctx)
	assert.ErrorIs(t, err, identity.ErrNoSession)

	_, err = p.Login(ctx, "asha@example.com", "wrong password")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = p.Login(ctx, "asha@example.com", "correct horse")
	require.NoError(t, err)
}

func TestLocal_SignupRules(t *testing.T) {
	ctx := context.Background()
	p := identity.NewLocal(testutil.NewTestStore(t), &identity.MemorySessionStore{})

	_, err := p.Signup(ctx, "Asha", "asha@example.com", "short")
	assert.Error(t, err)

	_, err = p.Signup(ctx, "Asha", "asha@example.com", "long enough")
	require.NoError(t, err)

	_, err = p.Signup(ctx, "Other", "asha@example.com", "long enough")
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	users, err := p.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLocal_StaleSessionIsCleared(t *testing.T) {
	sessions := &identity.MemorySessionStore{}
	require.NoError(t, sessions.Save("not-a-real-secret"))
	p := identity.NewLocal(testutil.NewTestStore(t), sessions)

	_, err := p.CurrentUser(context.Background())
	assert.ErrorIs(t, err, identity.ErrNoSession)
	stored, _ := sessions.Load()
	assert.Empty(t, stored)
}

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		email, password string
		ok              bool
	}{
		{"a@b.c", "x", true},
		{"", "x", false},
		{"nobody", "x", false},
		{"a@b.c", "", false},
	}
	for _, tt := range tests {
		err := identity.ValidateLogin(tt.email, tt.password)
		assert.Equal(t, tt.ok, err == nil, "%q/%q", tt.email, tt.password)
	}
}
