package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocalKey is the key under which Auth stores the authenticated user id.
const UserIDLocalKey = "user_id"

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	UserID(token string) (int64, error)
}

// Auth rejects requests without a valid "Authorization: Bearer <token>" header
// and stores the resolved user id in context locals.
func Auth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return Unauthorized(c)
		}

		uid, err := v.UserID(strings.TrimSpace(token))
		if err != nil {
			return Unauthorized(c)
		}

		c.Locals(UserIDLocalKey, uid)
		return c.Next()
	}
}

// UserIDFromCtx returns the user id stored by Auth.
func UserIDFromCtx(c *fiber.Ctx) (int64, bool) {
	uid, ok := c.Locals(UserIDLocalKey).(int64)
	return uid, ok
}

// Unauthorized writes the 401 error envelope shared by Auth and the handlers.
func Unauthorized(c *fiber.Ctx) error {
	rid, _ := c.Locals(RequestIDLocalKey).(string)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": rid,
		"error":      "Authentication credentials were not provided or are invalid.",
		"code":       "UNAUTHORIZED",
	})
}
