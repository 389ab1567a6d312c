package details

import (
	authRoute "onboarding_backend/internals/features/users/auth/route"
	twoFactorRoute "onboarding_backend/internals/features/users/two_factor/route"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AuthPublicRoutes: login, refresh and the login-time 2FA check.
func AuthPublicRoutes(api fiber.Router, db *gorm.DB, rdb redis.UniversalClient) {
	authRoute.AuthPublicRoutes(api, db)
	twoFactorRoute.TwoFactorPublicRoutes(api, db, rdb)
}

func AuthProtectedRoutes(protected fiber.Router, db *gorm.DB, rdb redis.UniversalClient) {
	authRoute.AuthProtectedRoutes(protected, db)
	twoFactorRoute.TwoFactorProtectedRoutes(protected, db, rdb)
}
