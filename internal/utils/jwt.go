package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtIssuer = "elit-catalog"

// JWTClaims is the payload of a catalog session token.
type JWTClaims struct {
	UserID int `json:"userId"`
	jwt.RegisteredClaims
}

var (
	jwtMu     sync.RWMutex
	jwtSecret []byte
	jwtTTL    = 12 * time.Hour
)

// ConfigureJWT sets the signing secret and token lifetime. It must be called
// before GenerateJWT or ValidateJWT.
func ConfigureJWT(secret string, ttl time.Duration) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtSecret = []byte(secret)
	if ttl > 0 {
		jwtTTL = ttl
	}
}

// GenerateJWT issues a token for the ELIT account that logged in.
func GenerateJWT(userID int) (string, time.Time, error) {
	jwtMu.RLock()
	secret, ttl := jwtSecret, jwtTTL
	jwtMu.RUnlock()
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateJWT verifies and parses a token issued by GenerateJWT.
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	jwtMu.RLock()
	secret := jwtSecret
	jwtMu.RUnlock()
	if len(secret) == 0 {
		return nil, errors.New("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(jwtIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
