package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docshare/internal/service"
)

// AuthIdentityLocalKey is the key used to store the parsed AuthIdentity in
// Fiber's context locals.
const AuthIdentityLocalKey = "auth_identity"

// Auth parses an optional Bearer token into an AuthIdentity and stores it in
// context locals. A missing or invalid token leaves a zero identity; routes
// that demand authentication stack RequireAuth on top.
func Auth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ident service.AuthIdentity

		h := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(h, "Bearer ") {
			if parsed, err := auth.ParseToken(strings.TrimPrefix(h, "Bearer ")); err == nil {
				ident = parsed
			}
		}

		c.Locals(AuthIdentityLocalKey, ident)
		return c.Next()
	}
}

// RequireAuth rejects requests that did not present a valid bearer token.
// It must run after Auth.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Identity(c).IsZero() {
			return fiber.NewError(fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}

// Identity returns the AuthIdentity stored by Auth; zero when the caller is
// anonymous.
func Identity(c *fiber.Ctx) service.AuthIdentity {
	if v, ok := c.Locals(AuthIdentityLocalKey).(service.AuthIdentity); ok {
		return v
	}
	return service.AuthIdentity{}
}
