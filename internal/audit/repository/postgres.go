package repository

import (
	"context"
	"database/sql"

	"crewdesk/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for
// persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit entry.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, identity_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.TenantID, e.IdentityID, e.Action, e.Resource, e.IP, e.Metadata, e.CreatedAt,
	)
	return err
}

// ListByTenant returns up to limit entries for the tenant, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, identity_id, action, resource, ip, metadata, created_at
		FROM audit_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		if err := rows.Scan(&e.ID, &e.TenantID, &e.IdentityID, &e.Action, &e.Resource, &e.IP, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
