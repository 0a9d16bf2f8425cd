package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eminence/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func identityApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/test", handler, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"uid": UserID(c), "anonymous": IsAnonymous(c)})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	app := identityApp(AuthRequired(issuer))

	named, err := issuer.Issue("user-123", false)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUID    string
	}{
		{"Happy Path", "Bearer " + named, http.StatusOK, "user-123"},
		{"Missing Header", "", http.StatusUnauthorized, ""},
		{"Bad Format", "Token " + named, http.StatusUnauthorized, ""},
		{"Garbage Token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUID, body["uid"])
			}
		})
	}
}

func TestAuthRequired_MissingHeaderIsAuthPending(t *testing.T) {
	app := identityApp(AuthRequired(auth.NewTokenIssuer(testSecret, time.Hour)))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestOptionalAuth(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	app := identityApp(OptionalAuth(issuer))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	anon, err := issuer.Issue("anon-1", true)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+anon)
	resp, err = app.Test(req)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "anon-1", body["uid"])
	assert.Equal(t, true, body["anonymous"])
}

func TestNamedUserRequired(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	app := fiber.New()
	app.Get("/named", AuthRequired(issuer), NamedUserRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	anon, _ := issuer.Issue("anon-1", true)
	named, _ := issuer.Issue("user-1", false)

	for token, want := range map[string]int{anon: http.StatusForbidden, named: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/named", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}
}

func TestWebSocketAuthRequired_QueryToken(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	app := identityApp(WebSocketAuthRequired(issuer))
	token, _ := issuer.Issue("user-9", false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
