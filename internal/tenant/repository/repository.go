package repository

import (
	"context"

	"crewdesk/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	// GetByID returns the tenant, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	// GetByName returns the tenant with the given name, or nil.
	GetByName(ctx context.Context, name string) (*domain.Tenant, error)
	// Create persists a new tenant.
	Create(ctx context.Context, t *domain.Tenant) error
}
