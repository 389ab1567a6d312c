package route

import (
	"onboarding_backend/internals/features/users/two_factor/controller"
	rateLimiter "onboarding_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// TwoFactorPublicRoutes: the login-time check, reachable with only a challenge.
func TwoFactorPublicRoutes(api fiber.Router, db *gorm.DB, rdb redis.UniversalClient) {
	ctrl := controller.NewTwoFactorController(db, rdb)
	api.Post("/auth/2fa/verify", rateLimiter.TwoFactorRateLimiter(), ctrl.VerifyLogin)
}

func TwoFactorProtectedRoutes(protected fiber.Router, db *gorm.DB, rdb redis.UniversalClient) {
	ctrl := controller.NewTwoFactorController(db, rdb)

	g := protected.Group("/auth/2fa")
	g.Get("/status", ctrl.Status)
	g.Post("/setup", ctrl.Setup)
	g.Post("/verify-setup", ctrl.VerifySetup)
	g.Post("/disable", ctrl.Disable)
	g.Post("/regenerate-backup-codes", ctrl.RegenerateBackupCodes)
}
