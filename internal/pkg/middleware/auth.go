package middleware

import (
	"github.com/gofiber/fiber/v2"

	icuser "github.com/valetdesk/ValetDesk/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in session and returns JSON 401 otherwise.
func RequireAuth(c *fiber.Ctx) error {
	v := c.Locals(icuser.KeyFromProtected)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireManager ensures a logged-in manager or admin; returns JSON 403 for
// everyone else.
func RequireManager(c *fiber.Ctx) error {
	v := c.Locals(icuser.KeyFromProtected)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !icuser.CanManage(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "insufficient role",
		})
	}
	return c.Next()
}
