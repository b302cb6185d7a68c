package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crewdesk/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, tenant_id, email, credential_hash, role_id, status_id, last_login_at, created_at`

// GetByEmail returns the identity for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// GetByID returns the identity for (tenantID, id), or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanIdentity(row)
}

// GetStatus returns the status for (tenantID, statusID), or nil if not found.
func (r *PostgresRepository) GetStatus(ctx context.Context, tenantID, statusID string) (*domain.Status, error) {
	var s domain.Status
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, can_login FROM statuses WHERE tenant_id = $1 AND id = $2`,
		tenantID, statusID,
	).Scan(&s.ID, &s.TenantID, &s.Name, &s.CanLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpdateLastLogin sets the identity's last-login timestamp.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE identities SET last_login_at = $3 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, at,
	)
	return err
}

// Create persists the identity to the database. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		i.ID, i.TenantID, i.Email, i.CredentialHash, nullString(i.RoleID), i.StatusID,
		timeToNullTime(i.LastLoginAt), i.CreatedAt,
	)
	return err
}

// CreateStatus persists the status row.
func (r *PostgresRepository) CreateStatus(ctx context.Context, s *domain.Status) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO statuses (id, tenant_id, name, can_login) VALUES ($1, $2, $3, $4)`,
		s.ID, s.TenantID, s.Name, s.CanLogin,
	)
	return err
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		i           domain.Identity
		roleID      sql.NullString
		lastLoginAt sql.NullTime
	)
	err := row.Scan(&i.ID, &i.TenantID, &i.Email, &i.CredentialHash, &roleID, &i.StatusID, &lastLoginAt, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.RoleID = roleID.String
	if lastLoginAt.Valid {
		i.LastLoginAt = &lastLoginAt.Time
	}
	return &i, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
