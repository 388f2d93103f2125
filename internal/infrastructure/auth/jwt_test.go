package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "billing", 15)

	token, err := svc.Generate("u1")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 15, svc.AccessExpMinutes())
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "billing", 15)
	good, err := svc.Generate("u1")
	require.NoError(t, err)

	otherSecret, err := NewJWTService("other", "billing", 15).Generate("u1")
	require.NoError(t, err)
	otherIssuer, err := NewJWTService("secret", "someone-else", 15).Generate("u1")
	require.NoError(t, err)
	expired, err := NewJWTService("secret", "billing", -1).Generate("u1")
	require.NoError(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "billing",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	refreshToken, err := refresh.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     good + "x",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"expired":      expired,
		"refresh":      refreshToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = svc.Generate("")
	require.Error(t, err)
}
