// Package auth provides JWT session token generation and validation
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// Claims represents the session token payload. Email and roles are a snapshot
// taken at issuance time and may go stale relative to the user record; the
// staleness window is bounded by the token TTL.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id carried in the subject claim
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

// HasRole reports whether the claims' role set contains role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret string
	ttl    time.Duration
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, ttl time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret: secret,
		ttl:    ttl,
	}
}

// Generate signs a session token carrying a snapshot of the user's email and roles
func (tg *TokenGenerator) Generate(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email: user.Email,
		Roles: user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tg.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tg.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies the token signature and expiry and returns the embedded claims
func (tg *TokenGenerator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tg.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token", apperrors.ErrAuth)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", apperrors.ErrAuth)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", apperrors.ErrAuth)
	}

	return claims, nil
}
