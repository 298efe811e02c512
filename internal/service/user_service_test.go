package service

import (
	"testing"
	"time"

	"posbackend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.Register(env.ctx, RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, model.RoleCashier, user.Role)

	_, err = env.users.Register(env.ctx, RegisterRequest{Username: "alice", Email: "other@example.com", Password: "s3cret-pass"})
	assert.Equal(t, KindConflict, KindOf(err))
	_, err = env.users.Register(env.ctx, RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "s3cret-pass"})
	assert.Equal(t, KindConflict, KindOf(err))
	_, err = env.users.Register(env.ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "short"})
	assert.Equal(t, KindValidation, KindOf(err))

	tokens, err := env.users.Login(env.ctx, LoginRequest{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := env.users.tokens.Parse(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = env.users.Login(env.ctx, LoginRequest{Username: "alice", Password: "wrong-pass"})
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = env.users.Login(env.ctx, LoginRequest{Username: "nobody", Password: "s3cret-pass"})
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Register(env.ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	tokens, err := env.users.Login(env.ctx, LoginRequest{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)

	rotated, err := env.users.Refresh(env.ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = env.users.Refresh(env.ctx, tokens.RefreshToken)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	require.NoError(t, env.users.Logout(env.ctx, rotated.RefreshToken))
	_, err = env.users.Refresh(env.ctx, rotated.RefreshToken)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Register(env.ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	tokens, err := env.users.Login(env.ctx, LoginRequest{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)

	env.users.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = env.users.Refresh(env.ctx, tokens.RefreshToken)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.users.EnsureAdmin(env.ctx, "admin", "admin@example.com", "admin-pass-123"))
	require.NoError(t, env.users.EnsureAdmin(env.ctx, "admin", "admin@example.com", "different-pass"))

	tokens, err := env.users.Login(env.ctx, LoginRequest{Username: "admin", Password: "admin-pass-123"})
	require.NoError(t, err)
	claims, err := env.users.tokens.Parse(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	me, err := env.users.GetUserByID(env.ctx, claims.Subject)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)
}

func TestPruneRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Register(env.ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	_, err = env.users.Login(env.ctx, LoginRequest{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)

	n, err := env.users.PruneRefreshTokens(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.users.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = env.users.PruneRefreshTokens(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
