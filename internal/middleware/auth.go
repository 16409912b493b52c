package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"campus-erp/internal/domain"
	"campus-erp/internal/service/auth"
)

const ActorContextKey = "actor"

// AuthRequired resolves the bearer token into a domain.Actor once; handlers
// read it back with GetActor.
func AuthRequired(authService auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return Unauthorized("Missing authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return Unauthorized("Invalid authorization header format")
		}

		claims, err := authService.ValidateAccessToken(parts[1])
		if err != nil {
			return Unauthorized("Invalid or expired token")
		}

		c.Locals(ActorContextKey, claims.Actor())
		return c.Next()
	}
}

func GetActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := c.Locals(ActorContextKey).(domain.Actor)
	if !ok {
		return domain.Actor{}, Unauthorized("User not authenticated")
	}
	return actor, nil
}
