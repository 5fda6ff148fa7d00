package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued status token stays valid
const DefaultTokenTTL = 24 * time.Hour

var ErrNoSecret = errors.New("STATUS_JWT_SECRET is not set")

// AuthUsecase issues bearer tokens for the status server
type AuthUsecase struct {
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthUsecase(secret string) *AuthUsecase {
	return &AuthUsecase{
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

func (uc *AuthUsecase) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(uc.jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := uc.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
