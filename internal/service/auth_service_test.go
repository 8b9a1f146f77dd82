package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedredwan17/etalem-api/internal/models"
	"github.com/mohamedredwan17/etalem-api/pkg/config"
)

func signTestToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)

	token := signTestToken(t, "test-secret", models.JWTClaims{
		StudentID: "s1",
		Email:     "amina@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.StudentID)
	assert.Equal(t, "amina@example.com", claims.Email)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)

	token := signTestToken(t, "other-secret", models.JWTClaims{StudentID: "s1"})
	_, err := svc.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)

	token := signTestToken(t, "test-secret", models.JWTClaims{
		StudentID: "s1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err := svc.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenMissingStudentID(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)

	token := signTestToken(t, "test-secret", models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err := svc.ValidateToken(token)
	require.Error(t, err)
}
