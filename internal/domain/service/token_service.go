package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService validates the access tokens that carry the user context.
// Token issuance belongs to the account service; only generation for
// first-party tooling and validation live here.
type TokenService interface {
	// GenerateAccessToken creates a signed access token for a user.
	GenerateAccessToken(userID uuid.UUID, ttl time.Duration) (string, error)

	// ValidateToken checks a token string against the configured secret.
	ValidateToken(tokenString string) (*jwt.Token, error)
}
