package service

import (
	"context"

	identitydomain "crewdesk/internal/identity/domain"
)

// IdentityGetter is the minimal identity lookup the guard needs.
type IdentityGetter interface {
	GetByID(ctx context.Context, tenantID, id string) (*identitydomain.Identity, error)
}

// Guard answers permission checks for authenticated principals. Unlike the
// role name snapshot inside an access token, the guard re-resolves the role
// against storage on every check.
type Guard struct {
	identities IdentityGetter
	resolver   *Resolver
}

// NewGuard returns a Guard resolving identities through identities and roles
// through resolver.
func NewGuard(identities IdentityGetter, resolver *Resolver) *Guard {
	return &Guard{identities: identities, resolver: resolver}
}

// Check reports whether the identity's current role holds the permission. An
// unknown identity is a plain denial, not an error.
func (g *Guard) Check(ctx context.Context, tenantID, identityID, permission string) (bool, error) {
	ident, err := g.identities.GetByID(ctx, tenantID, identityID)
	if err != nil {
		return false, err
	}
	if ident == nil {
		return false, nil
	}
	return g.resolver.CheckPermission(ctx, ident, permission)
}
