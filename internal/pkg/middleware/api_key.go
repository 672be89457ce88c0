package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

// AdminAPIKeyMiddleware guards operator endpoints with the shared key from
// ADMIN_API_KEY. An empty key disables the endpoints instead of opening them.
func AdminAPIKeyMiddleware() fiber.Handler {
	return AdminAPIKeyMiddlewareWithKey(env.GetEnv("ADMIN_API_KEY", ""))
}

// AdminAPIKeyMiddlewareWithKey is AdminAPIKeyMiddleware with an explicit key.
func AdminAPIKeyMiddlewareWithKey(expected string) fiber.Handler {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		log.Warn("[Admin] ADMIN_API_KEY is not set, admin endpoints are disabled")
	}
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_disabled", "message": "Admin API key not configured"})
		}
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			log.Warnf("[Admin] rejected API key from %s on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
