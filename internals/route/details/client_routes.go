package details

import (
	clientRoute "onboarding_backend/internals/features/clients/clients/route"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func ClientRoutes(protected fiber.Router, db *gorm.DB) {
	clientRoute.ClientRoutes(protected, db)
}
