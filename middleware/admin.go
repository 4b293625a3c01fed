// middleware/admin.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminTokenMiddleware gates mutating dashboard routes behind a shared
// bearer token. When DASHBOARD_TOKEN is unset the gate is open, matching
// the original deployment.
func AdminTokenMiddleware() fiber.Handler {
	expectedToken := os.Getenv("DASHBOARD_TOKEN")
	if expectedToken == "" {
		log.Println("⚠️  DASHBOARD_TOKEN not set — admin routes are open")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [ADMIN] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			log.Printf("❌ [ADMIN] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}
		return c.Next()
	}
}
