package domain

import "time"

// AuditLog is one immutable audit trail entry.
type AuditLog struct {
	ID         string
	TenantID   string
	IdentityID string
	Action     string
	Resource   string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
