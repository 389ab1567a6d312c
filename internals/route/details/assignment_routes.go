package details

import (
	assignmentRoute "onboarding_backend/internals/features/assignments/process_assignments/route"
	auditRoute "onboarding_backend/internals/features/audit/audit_logs/route"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func AssignmentRoutes(protected fiber.Router, db *gorm.DB) {
	assignmentRoute.ProcessAssignmentRoutes(protected, db)
}

func AuditRoutes(protected fiber.Router, db *gorm.DB) {
	auditRoute.AuditLogAdminRoutes(protected, db)
}
