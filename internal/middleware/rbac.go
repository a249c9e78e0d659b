package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/exeats-api/internal/utils"
)

// RequireTutor rejects requests without a logged-in tutor.
func RequireTutor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := RequiresAuth(c); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}

// RequireAdmin only lets administrators through.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tutor, err := RequiresAuth(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		if !tutor.IsAdmin {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
