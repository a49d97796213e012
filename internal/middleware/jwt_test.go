package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func jwtApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("user_role"),
		})
	})
	return app
}

func TestJWTProtectedSetsIdentity(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "7", "role": "Teacher", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := jwtApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingAndExpired(t *testing.T) {
	app := jwtApp()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	expired := signToken(t, jwt.MapClaims{"sub": 7, "exp": time.Now().Add(-time.Minute).Unix()})
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedQueryTokenOnlyForUpgrades(t *testing.T) {
	app := jwtApp()
	token := signToken(t, jwt.MapClaims{"sub": 7, "role": "student"})

	req := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestExtractUserRoleFromClaims(t *testing.T) {
	require.Equal(t, "teacher", extractUserRoleFromClaims(jwt.MapClaims{"roles": []interface{}{" Teacher "}}))
	require.Equal(t, "", extractUserRoleFromClaims(jwt.MapClaims{"role": 3}))

	id := extractUserIDFromClaims(jwt.MapClaims{"user_id": float64(12)})
	require.NotNil(t, id)
	require.Equal(t, uint(12), *id)
	require.Nil(t, extractUserIDFromClaims(jwt.MapClaims{"sub": "abc"}))
}
