package auth

import "errors"

// RBAC errors.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidRole      = errors.New("invalid role")
)

// Role is carried in the token and decides what its holder may do.
type Role string

const (
	// RoleViewer may read jobs, forms and builds.
	RoleViewer Role = "viewer"
	// RoleBuilder may additionally trigger builds.
	RoleBuilder Role = "builder"
	// RoleAdmin may additionally record build results and reconfigure jobs.
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permission represents an action that can be performed.
type Permission string

const (
	// PermissionViewJobs allows reading jobs, build forms and build history.
	PermissionViewJobs Permission = "view_jobs"
	// PermissionTriggerBuilds allows starting builds.
	PermissionTriggerBuilds Permission = "trigger_builds"
	// PermissionRecordResults allows reporting build results.
	PermissionRecordResults Permission = "record_results"
	// PermissionConfigureJobs allows importing and replacing job configuration.
	PermissionConfigureJobs Permission = "configure_jobs"
)

// rolePermissions defines which permissions each role has.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermissionViewJobs,
	},
	RoleBuilder: {
		PermissionViewJobs,
		PermissionTriggerBuilds,
	},
	RoleAdmin: {
		PermissionViewJobs,
		PermissionTriggerBuilds,
		PermissionRecordResults,
		PermissionConfigureJobs,
	},
}

// Roles returns every known role, least privileged first.
func Roles() []Role {
	return []Role{RoleViewer, RoleBuilder, RoleAdmin}
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns ErrPermissionDenied when role lacks permission.
func CheckPermission(role Role, permission Permission) error {
	if !HasPermission(role, permission) {
		return ErrPermissionDenied
	}
	return nil
}
