// Package service implements the session registry: the single owner of
// session rows, always operating within one tenant at a time.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"crewdesk/internal/session/domain"
	"crewdesk/internal/session/repository"
)

// ErrSessionNotFound is returned when no session matches a (tenant, digest)
// pair. A correct digest under the wrong tenant yields exactly this error, so
// callers can never learn whether the digest exists elsewhere.
var ErrSessionNotFound = errors.New("session not found")

// CreateParams carries the optional request metadata recorded on a new session.
type CreateParams struct {
	IP        string
	UserAgent string
	DeviceID  string
	ExpiresAt *time.Time
}

// Registry owns the lifecycle of session rows. All operations are scoped by
// tenant id and complete against storage before returning; none are
// fire-and-forget.
type Registry struct {
	repo repository.Repository
	now  func() time.Time
}

// NewRegistry returns a Registry over repo. now may be nil, in which case
// time.Now (UTC) is used; tests substitute a fixed clock.
func NewRegistry(repo repository.Repository, now func() time.Time) *Registry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{repo: repo, now: now}
}

// Create inserts a new session row for the identity with last_seen_at set to
// the creation instant and no revocation.
func (r *Registry) Create(ctx context.Context, tenantID, identityID, tokenHash string, p CreateParams) (*domain.Session, error) {
	now := r.now()
	s := &domain.Session{
		ID:         newSessionID(),
		TenantID:   tenantID,
		IdentityID: identityID,
		TokenHash:  tokenHash,
		IP:         p.IP,
		UserAgent:  p.UserAgent,
		DeviceID:   p.DeviceID,
		CreatedAt:  now,
		LastSeenAt: &now,
		ExpiresAt:  p.ExpiresAt,
	}
	if err := r.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FindActiveByDigest returns the session for (tenantID, tokenHash) or
// ErrSessionNotFound. The lookup itself does not filter revoked rows; callers
// that need active-only semantics must inspect RevokedAt.
func (r *Registry) FindActiveByDigest(ctx context.Context, tenantID, tokenHash string) (*domain.Session, error) {
	s, err := r.repo.GetByDigest(ctx, tenantID, tokenHash)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Revoke sets revoked_at on the session if not already set. Revoking an
// already-revoked session is a no-op, not an error; a missing (tenant,
// digest) pair is ErrSessionNotFound.
func (r *Registry) Revoke(ctx context.Context, tenantID, tokenHash string) error {
	s, err := r.repo.GetByDigest(ctx, tenantID, tokenHash)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}
	if s.Revoked() {
		return nil
	}
	return r.repo.Revoke(ctx, tenantID, tokenHash, r.now())
}

// TouchLastSeen updates last_seen_at to now. It does not resurrect a revoked
// session and does not itself require the session to be unrevoked; callers
// decide whether a revoked session may be touched.
func (r *Registry) TouchLastSeen(ctx context.Context, tenantID, tokenHash string) error {
	return r.repo.UpdateLastSeen(ctx, tenantID, tokenHash, r.now())
}

// Rotate replaces the session's digest with newHash, preserving the previous
// digest, and extends the expiry. The session must exist and be unrevoked.
func (r *Registry) Rotate(ctx context.Context, tenantID, oldHash, newHash string, expiresAt time.Time) error {
	s, err := r.repo.GetByDigest(ctx, tenantID, oldHash)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}
	if s.Revoked() {
		return ErrSessionNotFound
	}
	return r.repo.RotateDigest(ctx, tenantID, oldHash, newHash, expiresAt)
}

func newSessionID() string {
	return uuid.New().String()
}

// ListForIdentity returns all sessions (active and revoked) belonging to the
// identity within the tenant, ordered by last_seen_at descending. The result
// is a finite snapshot; calling again re-reads storage.
func (r *Registry) ListForIdentity(ctx context.Context, tenantID, identityID string) ([]*domain.Session, error) {
	return r.repo.ListByIdentity(ctx, tenantID, identityID)
}
