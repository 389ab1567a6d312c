package middlewares

import (
	"time"

	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func ipLimiter(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, message)
		},
	})
}

// Global limiter: every /api route
func GlobalRateLimiter() fiber.Handler {
	return ipLimiter(100, time.Minute, "Muitas requisições. Tente novamente mais tarde.")
}

// Login route (stricter)
func LoginRateLimiter() fiber.Handler {
	return ipLimiter(10, time.Minute, "Muitas tentativas de login. Aguarde alguns instantes.")
}

// Public 2FA verify; the per-user redis limiter sits behind this one
func TwoFactorRateLimiter() fiber.Handler {
	return ipLimiter(20, time.Minute, "Muitas tentativas de verificação. Aguarde alguns instantes.")
}
