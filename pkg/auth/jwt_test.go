package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	svc := NewJWTService("secret")

	token := signTestToken(t, "secret", &Claims{
		UserID: "user-1",
		Email:  "reviewer@example.com",
		Role:   "admin",
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewJWTService("secret")

	token := signTestToken(t, "other-secret", &Claims{Role: "admin"})
	_, err := svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewJWTService("secret")

	token := signTestToken(t, "secret", &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err := svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService("secret")

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, (&Claims{Role: "admin"}).IsAdmin())
	assert.True(t, (&Claims{Role: "super_admin"}).IsAdmin())
	assert.False(t, (&Claims{Role: "veterinarian"}).IsAdmin())
}
