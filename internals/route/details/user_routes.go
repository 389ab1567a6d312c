package details

import (
	userRoute "onboarding_backend/internals/features/users/user/route"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func UserRoutes(protected fiber.Router, db *gorm.DB) {
	userRoute.UserAdminRoutes(protected, db)
}
