// Package middleware implements the HTTP authentication gateway and the
// request-scoped identity context.
package middleware

import (
	"context"

	"crewdesk/internal/security"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the verified identity. Handlers and
// services downstream read it via GetIdentity.
func WithIdentity(ctx context.Context, ident *security.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// GetIdentity returns the verified identity from context and true if set;
// otherwise nil, false.
func GetIdentity(ctx context.Context) (*security.Identity, bool) {
	v, ok := ctx.Value(identityKey).(*security.Identity)
	return v, ok
}
