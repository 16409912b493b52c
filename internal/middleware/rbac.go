package middleware

import (
	"github.com/gofiber/fiber/v2"

	"campus-erp/internal/domain"
)

func RequireUserType(types ...domain.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := GetActor(c)
		if err != nil {
			return err
		}

		for _, t := range types {
			if actor.Type == t {
				return c.Next()
			}
		}
		return Forbidden("Insufficient permissions for this operation")
	}
}

// RequireStaff admits teachers and admins.
func RequireStaff() fiber.Handler {
	return RequireUserType(domain.UserTypeTeacher, domain.UserTypeAdmin)
}
