package constants

import "fmt"

// Permission levels (users.permission_level)
const (
	PermissionAdmin    = "administrador"
	PermissionOperator = "operador"
	PermissionAnalyst  = "analista"
)

// Template pesan error role
const (
	ErrOnlyAdminsCanAccess     = "❌ Apenas administradores podem acessar %s."
	ErrMinimumPermissionNeeded = "Acesso negado. Nível mínimo requerido: %s"
)

var permissionRank = map[string]int{
	PermissionAdmin:    3,
	PermissionOperator: 2,
	PermissionAnalyst:  1,
}

// PermissionRank returns the hierarchy weight of a level; unknown levels
// are treated as analista.
func PermissionRank(level string) int {
	if r, ok := permissionRank[level]; ok {
		return r
	}
	return permissionRank[PermissionAnalyst]
}

func HasMinimumPermission(level, minimum string) bool {
	return PermissionRank(level) >= PermissionRank(minimum)
}

func IsValidPermission(level string) bool {
	_, ok := permissionRank[level]
	return ok
}

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorMinimum(level string) string {
	return fmt.Sprintf(ErrMinimumPermissionNeeded, level)
}

// ==========================
// ✅ Grouped Level Slices
// ==========================
var (
	AllPermissions = []string{
		PermissionAdmin,
		PermissionOperator,
		PermissionAnalyst,
	}

	OperatorAndAbove = []string{
		PermissionAdmin,
		PermissionOperator,
	}

	AdminOnly = []string{
		PermissionAdmin,
	}
)
