package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/models"
	"github.com/mohamedredwan17/etalem-api/pkg/config"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
)

// AuthService validates access tokens issued by the identity provider. It
// never mints tokens itself.
type AuthService struct {
	config config.JWTConfig
	logger *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{config: cfg, logger: logger}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing student id")
	}

	return claims, nil
}
