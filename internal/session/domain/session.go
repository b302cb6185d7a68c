package domain

import "time"

// Session is the authoritative, tenant-scoped record that a refresh-token
// digest is (or was) valid for an identity. TokenHash is the only persisted
// trace of the refresh token; the raw value is never stored.
//
// (TenantID, TokenHash) identifies at most one session at a time. RevokedAt is
// terminal: once set it is never cleared. Rows are never deleted by normal
// revocation.
type Session struct {
	ID                string
	TenantID          string
	IdentityID        string
	TokenHash         string
	PreviousTokenHash string // digest before the last rotation; empty for unrotated sessions
	IP                string
	UserAgent         string
	DeviceID          string
	CreatedAt         time.Time
	LastSeenAt        *time.Time
	ExpiresAt         *time.Time
	RevokedAt         *time.Time // nil when not revoked
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool {
	return s != nil && s.RevokedAt != nil
}

// Expired reports whether the session's validity window has elapsed at now.
// Sessions without an expiry never expire.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
