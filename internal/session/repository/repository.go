package repository

import (
	"context"
	"time"

	"crewdesk/internal/session/domain"
)

// Repository defines persistence for sessions. Every method is parameterized
// by tenant id; implementations must never read or write another tenant's
// rows, and a digest match under the wrong tenant behaves exactly like a
// missing row.
type Repository interface {
	// Create persists the session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// GetByDigest returns the session for (tenantID, tokenHash), or nil if
	// no row matches. Revoked rows are returned; callers inspect RevokedAt.
	// Returns an error only for database failures, not for missing rows.
	GetByDigest(ctx context.Context, tenantID, tokenHash string) (*domain.Session, error)
	// Revoke sets revoked_at for (tenantID, tokenHash) if not already set.
	// A row that is already revoked is left untouched.
	Revoke(ctx context.Context, tenantID, tokenHash string, at time.Time) error
	// UpdateLastSeen sets last_seen_at for (tenantID, tokenHash). It does not
	// inspect or change revocation state.
	UpdateLastSeen(ctx context.Context, tenantID, tokenHash string, at time.Time) error
	// RotateDigest replaces the session's digest with newHash, preserving the
	// old digest in previous_token_hash, and extends the expiry.
	RotateDigest(ctx context.Context, tenantID, oldHash, newHash string, expiresAt time.Time) error
	// ListByIdentity returns all sessions (active and revoked) for the
	// identity within the tenant, ordered by last_seen_at descending.
	ListByIdentity(ctx context.Context, tenantID, identityID string) ([]*domain.Session, error)
}
