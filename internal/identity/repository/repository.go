package repository

import (
	"context"
	"time"

	"crewdesk/internal/identity/domain"
)

// Repository defines persistence for identities and their statuses.
type Repository interface {
	// GetByEmail returns the identity for email, or nil if not found. Email
	// is the login handle; the tenant is carried on the returned row.
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// GetByID returns the identity for (tenantID, id), or nil if not found.
	GetByID(ctx context.Context, tenantID, id string) (*domain.Identity, error)
	// GetStatus returns the status row for (tenantID, statusID), or nil.
	GetStatus(ctx context.Context, tenantID, statusID string) (*domain.Status, error)
	// UpdateLastLogin sets last_login_at for the identity.
	UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error
	// Create persists a new identity (used by seeding and account flows).
	Create(ctx context.Context, i *domain.Identity) error
	// CreateStatus persists a new status row.
	CreateStatus(ctx context.Context, s *domain.Status) error
}
