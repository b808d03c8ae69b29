// Package utils holds small helpers shared by the server and catalogctl.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed admin JWT and the moment it stops being accepted.
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires_at"`
}

// ErrEmptySecret is returned when asked to sign with an empty key.
var ErrEmptySecret = errors.New("jwt secret is empty")

// NewAccessToken signs an HS256 token for subject carrying role, valid for
// ttl from now. The claims are sub, role, iat and exp.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, ErrEmptySecret
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
