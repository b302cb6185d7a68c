package domain

import "time"

// Event types emitted by the auth code paths.
const (
	EventLogin          = "auth.login"
	EventLoginFailure   = "auth.login_failure"
	EventLogout         = "auth.logout"
	EventRefresh        = "auth.refresh"
	EventSessionRevoked = "auth.session_revoked"
)

// AuthEvent is one auth activity event published to the event stream.
type AuthEvent struct {
	Type       string    `json:"type"`
	TenantID   string    `json:"tenant_id,omitempty"`
	IdentityID string    `json:"identity_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	At         time.Time `json:"at"`
}
