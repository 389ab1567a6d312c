package database

import (
	"fmt"
	"log"

	assignmentModel "onboarding_backend/internals/features/assignments/process_assignments/model"
	auditModel "onboarding_backend/internals/features/audit/audit_logs/model"
	clientModel "onboarding_backend/internals/features/clients/clients/model"
	notificationModel "onboarding_backend/internals/features/home/notifications/model"
	authModel "onboarding_backend/internals/features/users/auth/model"
	userModel "onboarding_backend/internals/features/users/user/model"

	"gorm.io/gorm"
)

// Indexes gorm tags can't express. Run after AutoMigrate, all idempotent.
var extraIndexes = []string{
	// at most one open (pending/signed) assignment per process
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_process_assignments_active
		ON process_assignments (process_type, process_id)
		WHERE status IN ('pending','signed')`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_unread
		ON notifications (user_id, created_at DESC)
		WHERE is_read = false`,
}

// Migrate creates/updates tables for every model the service owns.
func Migrate(db *gorm.DB) error {
	log.Println("[INFO] running migrations")
	if err := db.AutoMigrate(
		&userModel.UserModel{},
		&authModel.TokenBlacklist{},
		&clientModel.ClientModel{},
		&clientModel.OnboardingStageModel{},
		&assignmentModel.ProcessAssignmentModel{},
		&notificationModel.NotificationModel{},
		&auditModel.AuditLogModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range extraIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
