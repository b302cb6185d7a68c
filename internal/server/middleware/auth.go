package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"crewdesk/internal/security"
	"crewdesk/internal/server/authcookie"
	"crewdesk/internal/server/httpx"
)

const bearerPrefix = "bearer "

// ErrNoCredential is returned by a Scheme when the request presents nothing
// the scheme can act on. The gateway skips to the next scheme; it is never
// surfaced to the client as a failure of that scheme.
var ErrNoCredential = errors.New("no credential presented")

// Scheme authenticates a request from one kind of credential. Authenticate
// returns ErrNoCredential when the request carries no such credential, any
// other error when a credential was presented but rejected.
type Scheme interface {
	Name() string
	Authenticate(r *http.Request) (*security.Identity, error)
}

// JWTScheme authenticates from a signed access token. The Authorization
// header is preferred; the access token cookie is the fallback. Exactly one
// source is consulted per request: a present header always wins, even when
// the cookie would have verified.
type JWTScheme struct {
	tokens *security.TokenProvider
}

// NewJWTScheme returns a JWTScheme verifying against tokens.
func NewJWTScheme(tokens *security.TokenProvider) *JWTScheme {
	return &JWTScheme{tokens: tokens}
}

func (s *JWTScheme) Name() string { return "jwt" }

func (s *JWTScheme) Authenticate(r *http.Request) (*security.Identity, error) {
	raw := extractBearer(r)
	if raw == "" {
		if v, ok := authcookie.Read(r); ok {
			raw = v
		}
	}
	if raw == "" {
		return nil, ErrNoCredential
	}
	return s.tokens.Verify(raw)
}

// Gateway runs an ordered chain of authentication schemes in front of
// protected routes. The first scheme to succeed wins and its identity is
// attached to the request context. When every scheme either abstains or
// fails, the most recent failure determines the 401 body.
type Gateway struct {
	schemes []Scheme
}

// NewGateway returns a Gateway over the given schemes, tried in order.
func NewGateway(schemes ...Scheme) *Gateway {
	return &Gateway{schemes: schemes}
}

// Authenticate is the middleware guarding protected routes.
func (g *Gateway) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var lastErr error
		for _, sch := range g.schemes {
			ident, err := sch.Authenticate(r)
			if err == nil {
				ctx := WithIdentity(r.Context(), ident)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if !errors.Is(err, ErrNoCredential) {
				lastErr = err
			}
		}
		if errors.Is(lastErr, security.ErrTokenExpired) {
			httpx.WriteUnauthorized(w, "token expired")
			return
		}
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
	})
}

// PermissionChecker answers whether an authenticated principal holds a named
// permission. Storage failures are errors; every negative outcome is plain
// false.
type PermissionChecker interface {
	Check(ctx context.Context, tenantID, identityID, permission string) (bool, error)
}

// RequireRoles returns middleware allowing only identities whose role name
// snapshot is one of roleNames. This is a coarse scope check on the token
// itself; it involves no storage round trip and is distinct from a
// permission check.
func RequireRoles(roleNames ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roleNames))
	for _, n := range roleNames {
		allowed[n] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := GetIdentity(r.Context())
			if !ok {
				httpx.WriteUnauthorized(w, "missing or invalid authorization")
				return
			}
			if !allowed[ident.RoleName] {
				httpx.WriteForbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission returns middleware allowing only identities whose role
// currently holds the named permission. Unlike RequireRoles this re-resolves
// the role against storage, so a permission granted or withdrawn after login
// takes effect immediately.
func RequirePermission(checker PermissionChecker, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := GetIdentity(r.Context())
			if !ok {
				httpx.WriteUnauthorized(w, "missing or invalid authorization")
				return
			}
			allowed, err := checker.Check(r.Context(), ident.TenantID, ident.IdentityID, permission)
			if err != nil {
				httpx.WriteInternalError(w, "permission check failed")
				return
			}
			if !allowed {
				httpx.WriteForbidden(w, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
