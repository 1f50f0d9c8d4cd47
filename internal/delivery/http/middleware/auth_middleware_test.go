package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ordinem/config"
	"ordinem/internal/domain/service"
	"ordinem/internal/infra/auth"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, secret string) service.TokenService {
	t.Helper()

	cfg := &config.Config{}
	cfg.SecretKey.Access = secret
	svc, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	return svc
}

func runAuthenticate(tokenSvc service.TokenService, authHeader string) (*httptest.ResponseRecorder, uuid.UUID) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/devices", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenUserID uuid.UUID
	handler := NewAuthMiddleware(tokenSvc).Authenticate(func(c echo.Context) error {
		seenUserID = UserID(c)

		return c.NoContent(http.StatusOK)
	})

	_ = handler(c)

	return rec, seenUserID
}

func TestAuthenticate_ValidTokenSetsUserID(t *testing.T) {
	t.Parallel()

	tokenSvc := newTestTokenService(t, "test-secret")
	userID := uuid.New()
	token, err := tokenSvc.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	rec, seenUserID := runAuthenticate(tokenSvc, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, seenUserID)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	t.Parallel()

	rec, _ := runAuthenticate(newTestTokenService(t, "test-secret"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHENTICATED")
}

func TestAuthenticate_NonBearerScheme(t *testing.T) {
	t.Parallel()

	rec, _ := runAuthenticate(newTestTokenService(t, "test-secret"), "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_TokenSignedWithWrongSecret(t *testing.T) {
	t.Parallel()

	forger := newTestTokenService(t, "someone-elses-secret")
	token, err := forger.GenerateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	rec, _ := runAuthenticate(newTestTokenService(t, "test-secret"), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	t.Parallel()

	tokenSvc := newTestTokenService(t, "test-secret")
	token, err := tokenSvc.GenerateAccessToken(uuid.New(), -time.Minute)
	require.NoError(t, err)

	rec, _ := runAuthenticate(tokenSvc, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserID_WithoutAuthentication(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, uuid.Nil, UserID(c))
}
