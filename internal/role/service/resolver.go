// Package service implements role resolution and permission checks.
package service

import (
	"context"

	identitydomain "crewdesk/internal/identity/domain"
	"crewdesk/internal/role/domain"
	"crewdesk/internal/role/repository"
)

// Resolver resolves an identity's role into its permission set and answers
// permission checks. It only reads role/permission data and performs no
// mutation.
type Resolver struct {
	repo repository.Repository
}

// NewResolver returns a Resolver over repo.
func NewResolver(repo repository.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveRole loads the identity's role with its permission set, or nil when
// the identity has no role or the role does not exist in the tenant.
func (r *Resolver) ResolveRole(ctx context.Context, ident *identitydomain.Identity) (*domain.Role, error) {
	if ident == nil || ident.RoleID == "" {
		return nil, nil
	}
	return r.repo.GetByID(ctx, ident.TenantID, ident.RoleID)
}

// CheckPermission reports whether the identity's role holds a permission with
// exactly the given name. Deny-by-default: a role-less identity, a missing
// role, an empty permission set, or an absent name all yield false, never an
// error. The error return is reserved for storage failures.
func (r *Resolver) CheckPermission(ctx context.Context, ident *identitydomain.Identity, permissionName string) (bool, error) {
	role, err := r.ResolveRole(ctx, ident)
	if err != nil {
		return false, err
	}
	return role.HasPermission(permissionName), nil
}
