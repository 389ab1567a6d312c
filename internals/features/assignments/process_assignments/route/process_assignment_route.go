package route

import (
	"onboarding_backend/internals/constants"
	"onboarding_backend/internals/features/assignments/process_assignments/controller"
	authMiddleware "onboarding_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProcessAssignmentRoutes expects the auth middleware on the router.
func ProcessAssignmentRoutes(protected fiber.Router, db *gorm.DB) {
	ctrl := controller.NewProcessAssignmentController(db)

	g := protected.Group("/assignments")
	g.Post("/", authMiddleware.RequirePermission(constants.PermissionOperator), ctrl.Create)
	g.Get("/", ctrl.List)
	g.Get("/my", ctrl.ListMine)
	g.Get("/check/:processType/:processId", ctrl.CheckActive)
	g.Get("/:id", ctrl.Get)
	g.Post("/:id/sign", ctrl.Sign)
	g.Post("/:id/reject", ctrl.Reject)
	g.Post("/:id/complete", ctrl.Complete)
	g.Delete("/:id", ctrl.Delete)
}
