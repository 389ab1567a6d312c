package constants

// Audit action names written to audit_logs.action
const (
	AuditLogin        = "login"
	AuditLoginFailed  = "login_failed"
	AuditLogout       = "logout"
	AuditTokenRefresh = "token_refresh"
	AuditUserCreate   = "user_create"
	AuditUserStatus   = "user_status_change"
	AuditUserBlocked  = "user_block"
	AuditUserUpdate   = "user_update"
	AuditUserDelete   = "user_delete"

	AuditPasswordChange = "password_change"

	AuditAssignmentCreate   = "assignment_create"
	AuditAssignmentSign     = "assignment_sign"
	AuditAssignmentReject   = "assignment_reject"
	AuditAssignmentComplete = "assignment_complete"
	AuditAssignmentDelete   = "assignment_delete"

	AuditClientCreate = "client_create"
	AuditClientUpdate = "client_update"
	AuditClientDelete = "client_delete"
	AuditStageUpdate  = "onboarding_stage_update"

	AuditTwoFactorEnabled       = "two_factor_enabled"
	AuditTwoFactorDisabled      = "two_factor_disabled"
	AuditBackupCodesRegenerated = "backup_codes_regenerated"
	AuditBackupCodeUsed         = "backup_code_used"
	AuditTwoFactorVerifyFailed  = "two_factor_verify_failed"
)

// Audit entities
const (
	EntityUser       = "user"
	EntityAssignment = "assignment"
	EntityClient     = "client"
	EntityStage      = "onboarding_stage"
)
