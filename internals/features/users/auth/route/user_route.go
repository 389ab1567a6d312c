package route

import (
	controller "onboarding_backend/internals/features/users/auth/controller"
	rateLimiter "onboarding_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthPublicRoutes: /api/auth endpoints reachable without a session.
func AuthPublicRoutes(api fiber.Router, db *gorm.DB) {
	authController := controller.NewAuthController(db)

	baseAuth := api.Group("/auth")
	baseAuth.Post("/login", rateLimiter.LoginRateLimiter(), authController.Login)
	baseAuth.Post("/refresh", authController.RefreshToken)
}

// AuthProtectedRoutes expects the auth middleware on the router.
func AuthProtectedRoutes(protected fiber.Router, db *gorm.DB) {
	authController := controller.NewAuthController(db)

	protectedAuth := protected.Group("/auth")
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Get("/me", authController.Me)
	protectedAuth.Post("/change-password", authController.ChangePassword)
}
