package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)

	token, exp, err := m.IssueAccessToken("user-1", "ann", "cashier")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ann", claims.Username)
	assert.Equal(t, "cashier", claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("a", time.Minute, time.Hour).IssueAccessToken("u", "n", "admin")
	require.NoError(t, err)

	_, err = NewTokenManager("b", time.Minute, time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.IssueAccessToken("u", "n", "admin")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRefreshTokenIsRandom(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)
	a, _, err := m.NewRefreshToken()
	require.NoError(t, err)
	b, _, err := m.NewRefreshToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
