package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/internal/pkg/database"
	"github.com/valetdesk/ValetDesk/internal/pkg/session"
	"github.com/valetdesk/ValetDesk/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes user session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		// On error: set as anonymous user
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	// Get user ID from session
	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		// Anonymous user - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)

	// Determine role with session-first strategy
	role := session.GetSessionValue(c, usercontext.KeyUserRole)
	if role == "" {
		role = models.ROLE_VALET
		if db := database.GetDB(); db != nil {
			var user models.User
			if err := db.First(&user, userID.(uint)).Error; err == nil && user.Role != "" {
				role = user.Role
			}
		}
		// cache in session for subsequent requests
		_ = session.SetSessionValue(c, usercontext.KeyUserRole, role)
	}

	// Set complete user context
	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		Role:       role,
		IsLoggedIn: true,
	}
	c.Locals("USER_CONTEXT", userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyUsername, username)

	return c.Next()
}
