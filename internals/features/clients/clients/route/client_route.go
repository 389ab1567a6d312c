package route

import (
	"onboarding_backend/internals/constants"
	"onboarding_backend/internals/features/clients/clients/controller"
	authMiddleware "onboarding_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ClientRoutes expects the auth middleware on the router.
func ClientRoutes(protected fiber.Router, db *gorm.DB) {
	ctrl := controller.NewClientController(db)

	g := protected.Group("/clients")
	g.Get("/", ctrl.List)
	g.Post("/", authMiddleware.RequirePermission(constants.PermissionOperator), ctrl.Create)
	g.Get("/:id", ctrl.Get)
	g.Put("/:id", authMiddleware.RequirePermission(constants.PermissionOperator), ctrl.Update)
	g.Delete("/:id", authMiddleware.RequirePermission(constants.PermissionAdmin), ctrl.Delete)
	g.Get("/:id/onboarding", ctrl.Stages)

	protected.Put("/onboarding/:id", ctrl.UpdateStage)
}
