package repository

import (
	"context"

	"crewdesk/internal/audit/domain"
)

// Repository defines persistence for audit log entries. Entries are
// append-only; there is no update or delete.
type Repository interface {
	// Create persists the entry.
	Create(ctx context.Context, e *domain.AuditLog) error
	// ListByTenant returns up to limit entries for the tenant, newest first.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.AuditLog, error)
}
