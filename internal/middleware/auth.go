// Package middleware provides request-scoped concerns for the HTTP API:
// viewer authentication, logging context, rate limiting, metrics and tracing.
package middleware

import (
	"context"
	"errors"
	"strings"

	"clubhouse/internal/config"
	"clubhouse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var (
	errMissingToken  = errors.New("authorization required")
	errInvalidFormat = errors.New("invalid authorization header format")
	errInvalidToken  = errors.New("invalid or expired token")
	errInvalidClaims = errors.New("invalid token subject")
)

// ParseViewer validates an HS256 token and returns its subject, the viewer's
// user id.
func ParseViewer(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errInvalidClaims
	}
	return sub, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

func setViewer(c *fiber.Ctx, userID string) {
	c.Locals("userID", userID)
	c.SetUserContext(WithViewer(c.UserContext(), userID))
}

func unauthenticated(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthenticatedError(err.Error()))
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return unauthenticated(c, err)
	}
	userID, err := ParseViewer(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthenticated(c, err)
	}
	setViewer(c, userID)
	return c.Next()
}

// OptionalAuth identifies the viewer when a bearer token is present and lets
// anonymous requests through. A malformed or expired token is still rejected.
func OptionalAuth(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if errors.Is(err, errMissingToken) {
		return c.Next()
	}
	if err != nil {
		return unauthenticated(c, err)
	}
	userID, err := ParseViewer(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthenticated(c, err)
	}
	setViewer(c, userID)
	return c.Next()
}

// WebSocketAuth is OptionalAuth for upgrade requests, which cannot carry
// headers from browsers: the token may come from the "token" query parameter.
func WebSocketAuth(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		return OptionalAuth(c)
	}
	userID, err := ParseViewer(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthenticated(c, err)
	}
	setViewer(c, userID)
	return c.Next()
}

// Viewer returns the authenticated user id, or "" for anonymous requests.
func Viewer(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(string); ok {
		return uid
	}
	return ""
}

// ViewerFromContext returns the viewer id stored by the auth middleware.
func ViewerFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}
