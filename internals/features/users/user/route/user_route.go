package route

import (
	"onboarding_backend/internals/constants"
	"onboarding_backend/internals/features/users/user/controller"
	authMiddleware "onboarding_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserAdminRoutes mounts /users. Listing, creation and status changes are
// admin-only; single-user reads and edits also serve the user themself.
func UserAdminRoutes(protected fiber.Router, db *gorm.DB) {
	ctrl := controller.NewUserController(db)
	adminOnly := authMiddleware.RequirePermission(constants.PermissionAdmin)

	users := protected.Group("/users")
	users.Get("/", adminOnly, ctrl.ListUsers)
	users.Post("/", adminOnly, ctrl.CreateUser)
	users.Patch("/:id/status", adminOnly, ctrl.UpdateStatus)
	users.Get("/:id", ctrl.GetUser)
	users.Put("/:id", ctrl.UpdateUser)
	users.Delete("/:id", adminOnly, ctrl.DeleteUser)
}
