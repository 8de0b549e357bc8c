package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken("secret", "user-1", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := IssueToken("secret", "user-1", "alice", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	token, err := IssueToken("secret", "user-1", "alice", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	_, err := VerifyToken("secret", "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMissingSubject(t *testing.T) {
	token, err := IssueToken("secret", "", "alice", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
