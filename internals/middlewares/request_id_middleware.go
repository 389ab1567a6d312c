package middlewares

import (
	"context"
	"time"

	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/ids"

	"github.com/gofiber/fiber/v2"
)

const requestTimeout = 5 * time.Second

// RequestIDMiddleware propagates X-Request-ID (ULID when absent) and puts a
// deadline on the request context used by gorm.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" || len(id) > 64 {
			id = ids.NewRequestID()
		}
		c.Set(fiber.HeaderXRequestID, id)
		c.Locals(helper.LocRequestID, id)

		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
