// Package audit records the immutable audit trail for auth and session
// activity.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"crewdesk/internal/audit/domain"
	auditrepo "crewdesk/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for audit events that have no tenant
// (e.g. a login failure against an unknown email).
const SentinelTenantID = "_system"

// Actions recorded by the auth and session code paths.
const (
	ActionLogin         = "login"
	ActionLoginFailure  = "login_failure"
	ActionLogout        = "logout"
	ActionRefresh       = "refresh"
	ActionSessionRevoke = "session_revoke"
)

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, identityID, action, resource, ip, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not
// returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, identityID, action, resource, ip, metadata string) {
	if l.repo == nil {
		return
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		IdentityID: identityID,
		Action:     action,
		Resource:   resource,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// Nop is an AuditLogger that discards everything. Used in tests and in
// commands that have no audit store.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string, string, string) {}
