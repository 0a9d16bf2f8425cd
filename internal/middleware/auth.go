package middleware

import (
	"context"
	"strings"

	"eminence/internal/auth"
	"eminence/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth middleware.
const (
	LocalUserID    = "userID"
	LocalAnonymous = "anonymous"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *fiber.Ctx, id auth.Identity) {
	c.Locals(LocalUserID, id.UID)
	c.Locals(LocalAnonymous, id.Anonymous)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, id.UID))
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.ErrAuthPending)
		}
		token, ok := bearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}
		id, err := parser.Parse(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		setIdentity(c, id)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and continues either way.
func OptionalAuth(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if id, err := parser.Parse(token); err == nil {
				setIdentity(c, id)
			}
		}
		return c.Next()
	}
}

// NamedUserRequired rejects anonymous callers. Must run after AuthRequired.
func NamedUserRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IsAnonymous(c) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("This action requires a registered account"))
		}
		return c.Next()
	}
}

// WebSocketAuthRequired validates a token passed as the "token" query parameter,
// falling back to the Authorization header.
func WebSocketAuthRequired(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var ok bool
			if token, ok = bearerToken(c); !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token required"))
			}
		}
		id, err := parser.Parse(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		setIdentity(c, id)
		return c.Next()
	}
}

// UserID returns the authenticated uid, or "" when the request is unauthenticated.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalUserID).(string)
	return uid
}

// IsAnonymous reports whether the caller signed in anonymously.
func IsAnonymous(c *fiber.Ctx) bool {
	anon, _ := c.Locals(LocalAnonymous).(bool)
	return anon
}
