package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clubhouse/internal/config"
	"clubhouse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func tokenFor(t *testing.T, userID string, exp time.Duration) string {
	return signToken(t, jwt.MapClaims{"sub": userID, "exp": time.Now().Add(exp).Unix()})
}

func viewerApp(handlers ...fiber.Handler) *fiber.App {
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app := fiber.New()
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"viewer": Viewer(c), "ctx_viewer": ViewerFromContext(c.UserContext())})
	})
	app.Get("/test", handlers...)
	return app
}

func TestAuthRequired(t *testing.T) {
	app := viewerApp(AuthRequired)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedViewer string
	}{
		{"Happy Path", "Bearer " + tokenFor(t, "u-123", time.Hour), http.StatusOK, "u-123"},
		{"Missing Header", "", http.StatusUnauthorized, ""},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"Malformed Token", "Bearer malformed.token.here", http.StatusUnauthorized, ""},
		{"Expired Token", "Bearer " + tokenFor(t, "u-123", -time.Hour), http.StatusUnauthorized, ""},
		{"Empty Subject", "Bearer " + tokenFor(t, "  ", time.Hour), http.StatusUnauthorized, ""},
		{"Numeric Subject", "Bearer " + signToken(t, jwt.MapClaims{"sub": 42}), http.StatusUnauthorized, ""},
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
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedViewer, body["viewer"])
				assert.Equal(t, tt.expectedViewer, body["ctx_viewer"])
			} else {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, models.CodeUnauthenticated, body.Code)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	app := viewerApp(OptionalAuth)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedViewer string
	}{
		{"Anonymous", "", http.StatusOK, ""},
		{"Viewer", "Bearer " + tokenFor(t, "u-9", time.Hour), http.StatusOK, "u-9"},
		{"Bad Token Still Rejected", "Bearer nope", http.StatusUnauthorized, ""},
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
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedViewer, body["viewer"])
			}
		})
	}
}

func TestWebSocketAuth(t *testing.T) {
	app := viewerApp(WebSocketAuth)

	tests := []struct {
		name           string
		tokenParam     string
		authHeader     string
		expectedStatus int
		expectedViewer string
	}{
		{"Token via Query Param", tokenFor(t, "u-1", time.Hour), "", http.StatusOK, "u-1"},
		{"Token via Header", "", "Bearer " + tokenFor(t, "u-2", time.Hour), http.StatusOK, "u-2"},
		{"Anonymous Watcher", "", "", http.StatusOK, ""},
		{"Invalid Token", "invalid-token", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/test"
			if tt.tokenParam != "" {
				path += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedViewer, body["viewer"])
			}
		})
	}
}

func TestParseViewer_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseViewer(testSecret, s)
	assert.Error(t, err)
}
