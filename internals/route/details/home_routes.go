package details

import (
	NotificationRoutes "onboarding_backend/internals/features/home/notifications/route"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Contoh akses: /api/notifications
func HomePrivateRoutes(protected fiber.Router, db *gorm.DB) {
	NotificationRoutes.NotificationUserRoutes(protected, db)
}
