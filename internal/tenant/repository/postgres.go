package repository

import (
	"context"
	"database/sql"
	"errors"

	"crewdesk/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for
// persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.get(ctx, `SELECT id, name, created_at FROM tenants WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	return r.get(ctx, `SELECT id, name, created_at FROM tenants WHERE name = $1`, name)
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.Name, t.CreatedAt,
	)
	return err
}
