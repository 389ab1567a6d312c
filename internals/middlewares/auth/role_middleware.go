package auth

import (
	"onboarding_backend/internals/constants"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
)

// RequirePermission lets the request through when the caller's level is at
// least minimum in the administrador > operador > analista hierarchy.
func RequirePermission(minimum string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		level, ok := c.Locals(helper.LocPermissionLevel).(string)
		if !ok || level == "" {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Usuário não autenticado")
		}
		if !constants.HasMinimumPermission(level, minimum) {
			if minimum == constants.PermissionAdmin {
				return helper.JsonError(c, fiber.StatusForbidden, constants.RoleErrorAdmin("este recurso"))
			}
			return helper.JsonError(c, fiber.StatusForbidden, constants.RoleErrorMinimum(minimum))
		}
		return c.Next()
	}
}
