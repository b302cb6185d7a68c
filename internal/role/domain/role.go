package domain

// Role is a named collection of permissions assigned to an identity within a
// tenant. Permissions are loaded eagerly when the role is resolved.
type Role struct {
	ID          string
	TenantID    string
	Name        string
	Permissions []Permission
}

// PermissionManageSessions guards listing and revoking sessions that belong
// to other identities in the tenant.
const PermissionManageSessions = "manage_sessions"

// Permission is a named capability. Name uniqueness is per tenant, not global.
type Permission struct {
	ID       string
	TenantID string
	Name     string
}

// HasPermission reports whether the role's loaded permission set contains an
// entry with exactly the given name. A nil role or empty set denies.
func (r *Role) HasPermission(name string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}
