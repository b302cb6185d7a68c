package repository

import (
	"context"
	"database/sql"
	"errors"

	"crewdesk/internal/role/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a role repository that uses the given db for
// persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the role for (tenantID, id) with its permissions loaded, or
// nil if not found. It returns an error only for database failures.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name FROM roles WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&role.ID, &role.TenantID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.tenant_id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND p.tenant_id = $2`,
		role.ID, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name); err != nil {
			return nil, err
		}
		role.Permissions = append(role.Permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &role, nil
}

// Create persists the role and its permission links. Permissions themselves
// must already exist (CreatePermission).
func (r *PostgresRepository) Create(ctx context.Context, role *domain.Role) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO roles (id, tenant_id, name) VALUES ($1, $2, $3)`,
		role.ID, role.TenantID, role.Name,
	); err != nil {
		return err
	}
	for _, p := range role.Permissions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			role.ID, p.ID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreatePermission persists the permission row.
func (r *PostgresRepository) CreatePermission(ctx context.Context, p *domain.Permission) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (id, tenant_id, name) VALUES ($1, $2, $3)`,
		p.ID, p.TenantID, p.Name,
	)
	return err
}
