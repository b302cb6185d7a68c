package repository

import (
	"context"

	"crewdesk/internal/role/domain"
)

// Repository defines persistence for roles and their permission sets.
type Repository interface {
	// GetByID returns the role for (tenantID, id) with its permission set
	// loaded eagerly, or nil if not found.
	GetByID(ctx context.Context, tenantID, id string) (*domain.Role, error)
	// Create persists a role and links its permissions (seeding).
	Create(ctx context.Context, r *domain.Role) error
	// CreatePermission persists a permission row (seeding).
	CreatePermission(ctx context.Context, p *domain.Permission) error
}
