package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "ops@example.com", "ADMIN", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "HS256", parsed.Method.Alg())

	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", sub)
	assert.Equal(t, "ADMIN", claims["role"])
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "ops", "ADMIN", time.Minute)
	require.NoError(t, err)

	_, err = jwt.Parse(tok.Token, func(*jwt.Token) (any, error) { return []byte("other"), nil })
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestNewAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "ops", "ADMIN", -time.Minute)
	require.NoError(t, err)

	_, err = jwt.Parse(tok.Token, func(*jwt.Token) (any, error) { return []byte("s3cret"), nil })
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestNewAccessTokenEmptySecret(t *testing.T) {
	_, err := NewAccessToken("", "ops", "ADMIN", time.Minute)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
