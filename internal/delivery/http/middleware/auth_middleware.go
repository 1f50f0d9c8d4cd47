package middleware

import (
	"strings"

	"ordinem/internal/delivery/http/response"
	"ordinem/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// userIDContextKey is the echo context key carrying the authenticated user.
const userIDContextKey = "userID"

// AuthMiddleware provides middleware for JWT authentication.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate is the core middleware function that validates the JWT access token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "Invalid token format, must be Bearer token")
		}

		token, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "Invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "Failed to parse token claims")
		}

		// Extract user ID
		userIDStr, ok := claims["sub"].(string)
		if !ok {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "User ID missing from token")
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return response.Unauthorized(c, "NOT_AUTHENTICATED", "Invalid user ID format in token")
		}

		// Set user info on the context for handlers to use
		c.Set(userIDContextKey, userID)

		return next(c)
	}
}

// UserID extracts the authenticated user ID from the echo context. Returns
// uuid.Nil when the request did not pass through Authenticate.
func UserID(c echo.Context) uuid.UUID {
	userID, ok := c.Get(userIDContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}

	return userID
}
