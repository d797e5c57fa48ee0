package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localUserID = "userID"
	localEmail  = "email"
	localRole   = "role"
)

// AuthMiddleware creates a middleware that validates JWT tokens
func AuthMiddleware(authService *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if msg := authenticate(c, authService); msg != "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}
		return c.Next()
	}
}

// authenticate stores the token claims in locals, or returns the 401 message.
func authenticate(c *fiber.Ctx, authService *Service) string {
	token, ok := bearerToken(c)
	if !ok {
		return "No token provided"
	}

	claims, err := authService.ValidateToken(token)
	if err != nil {
		return "Invalid token"
	}

	c.Locals(localUserID, claims.UserID)
	c.Locals(localEmail, claims.Email)
	c.Locals(localRole, claims.Role)
	return ""
}

// RequireRole creates a middleware that checks if user has required role
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleStr, _ := c.Locals(localRole).(string)
		if roleStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		for _, role := range roles {
			if roleStr == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// AdminMiddleware admits requests carrying the configured X-Admin-Key, or a
// bearer token whose role is admin.
func AdminMiddleware(authService *Service, adminKey string) fiber.Handler {
	requireAdmin := RequireRole(RoleAdmin)

	return func(c *fiber.Ctx) error {
		if key := c.Get("X-Admin-Key"); adminKey != "" && key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
				c.Locals(localRole, RoleAdmin)
				return c.Next()
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid admin key",
			})
		}

		if msg := authenticate(c, authService); msg != "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}
		return requireAdmin(c)
	}
}

// UserID returns the authenticated user's id.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, _ := c.Locals(localUserID).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
