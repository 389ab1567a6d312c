package route

import (
	"onboarding_backend/internals/constants"
	"onboarding_backend/internals/features/audit/audit_logs/controller"
	authMiddleware "onboarding_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func AuditLogAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewAuditLogController(db)

	g := admin.Group("/audit-logs", authMiddleware.RequirePermission(constants.PermissionAdmin))
	g.Get("/", ctrl.List)
	g.Get("/:id", ctrl.Get)
}
