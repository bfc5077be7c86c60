package utils

import (
	"errors"
	"fmt"
	"time"

	"orgsync-api/core/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenData struct {
	UserID uuid.UUID
	Email  string
}

type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func jwtSecret() ([]byte, error) {
	cfg, ok := config.GetSafe()
	if !ok || cfg.JWT.Secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	return []byte(cfg.JWT.Secret), nil
}

// GenerateToken issues an HS256 access token. The platform's auth service owns
// login; this exists for internal tooling and tests.
func GenerateToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}

	claims := accessClaims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ValidateAndParseToken(token string) (*TokenData, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}

	return &TokenData{UserID: userID, Email: claims.Email}, nil
}
