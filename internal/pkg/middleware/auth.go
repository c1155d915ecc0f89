package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/salvaplantao/internal/pkg/usercontext"
)

// RequireAdmin ensures an authenticated admin and returns JSON errors otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !uc.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin only",
		})
	}
	return c.Next()
}
