package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crewdesk/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, tenant_id, identity_id, token_hash, previous_token_hash, ip, user_agent, device_id, created_at, last_seen_at, expires_at, revoked_at`

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.TenantID, s.IdentityID, s.TokenHash,
		nullString(s.PreviousTokenHash), nullString(s.IP), nullString(s.UserAgent), nullString(s.DeviceID),
		s.CreatedAt, timeToNullTime(s.LastSeenAt), timeToNullTime(s.ExpiresAt), timeToNullTime(s.RevokedAt),
	)
	return err
}

// GetByDigest returns the session for (tenantID, tokenHash), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByDigest(ctx context.Context, tenantID, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE tenant_id = $1 AND token_hash = $2`,
		tenantID, tokenHash,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Revoke marks the session as revoked if not already revoked. Already-revoked
// rows are left untouched so the first revocation time is preserved.
func (r *PostgresRepository) Revoke(ctx context.Context, tenantID, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = $3
		WHERE tenant_id = $1 AND token_hash = $2 AND revoked_at IS NULL`,
		tenantID, tokenHash, at,
	)
	return err
}

// UpdateLastSeen sets the session's last-seen timestamp. Revocation state is
// neither checked nor changed.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, tenantID, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = $3
		WHERE tenant_id = $1 AND token_hash = $2`,
		tenantID, tokenHash, at,
	)
	return err
}

// RotateDigest swaps in a new token digest, keeping the old one as the
// rotation trail, and extends the validity window.
func (r *PostgresRepository) RotateDigest(ctx context.Context, tenantID, oldHash, newHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET previous_token_hash = token_hash, token_hash = $3, expires_at = $4
		WHERE tenant_id = $1 AND token_hash = $2`,
		tenantID, oldHash, newHash, expiresAt,
	)
	return err
}

// ListByIdentity returns all sessions for the identity in the tenant, newest
// activity first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, tenantID, identityID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE tenant_id = $1 AND identity_id = $2
		ORDER BY last_seen_at DESC NULLS LAST, created_at DESC`,
		tenantID, identityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s                                 domain.Session
		prevHash, ip, userAgent, deviceID sql.NullString
		lastSeenAt, expiresAt, revokedAt  sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.TenantID, &s.IdentityID, &s.TokenHash,
		&prevHash, &ip, &userAgent, &deviceID,
		&s.CreatedAt, &lastSeenAt, &expiresAt, &revokedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PreviousTokenHash = prevHash.String
	s.IP = ip.String
	s.UserAgent = userAgent.String
	s.DeviceID = deviceID.String
	s.LastSeenAt = nullTimeToPtr(lastSeenAt)
	s.ExpiresAt = nullTimeToPtr(expiresAt)
	s.RevokedAt = nullTimeToPtr(revokedAt)
	return &s, nil
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

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
