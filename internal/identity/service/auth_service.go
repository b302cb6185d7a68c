package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	identitydomain "crewdesk/internal/identity/domain"
	roledomain "crewdesk/internal/role/domain"
	"crewdesk/internal/security"
	sessiondomain "crewdesk/internal/session/domain"
	sessionservice "crewdesk/internal/session/service"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status
// codes. Every credential-stage failure collapses into ErrInvalidCredentials
// so a caller cannot distinguish unknown email, wrong password, or a
// login-barred status.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrIdentityNotFound    = errors.New("identity not found")
)

// AuthResult holds the outcome of Login or Refresh: the signed access token,
// the raw refresh token (surfaced exactly once), and the identity snapshot the
// tokens were issued for.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IdentityID   string
	TenantID     string
	Email        string
	RoleName     string
	Session      *sessiondomain.Session
}

// Profile is the identity view returned to an authenticated caller.
type Profile struct {
	ID          string
	TenantID    string
	Email       string
	RoleName    string
	LastLoginAt *time.Time
}

// LoginMeta carries request metadata recorded on the session created at login.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error)
	GetByID(ctx context.Context, tenantID, id string) (*identitydomain.Identity, error)
	GetStatus(ctx context.Context, tenantID, statusID string) (*identitydomain.Status, error)
	UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error
}

// RoleResolver is the minimal role lookup needed by the auth service.
type RoleResolver interface {
	ResolveRole(ctx context.Context, ident *identitydomain.Identity) (*roledomain.Role, error)
}

// AuthService implements login, silent refresh, logout, and profile lookup.
type AuthService struct {
	identities IdentityRepo
	roles      RoleResolver
	sessions   *sessionservice.Registry
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	refresh    *security.RefreshTokenSource
	accessTTL  time.Duration
	now        func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. now may
// be nil, in which case time.Now (UTC) is used.
func NewAuthService(
	identities IdentityRepo,
	roles RoleResolver,
	sessions *sessionservice.Registry,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	refresh *security.RefreshTokenSource,
	accessTTL time.Duration,
	now func() time.Time,
) *AuthService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AuthService{
		identities: identities,
		roles:      roles,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		refresh:    refresh,
		accessTTL:  accessTTL,
		now:        now,
	}
}

// Login authenticates with email/password, snapshots the identity's role name
// into a fresh access token, and opens a refresh session. The raw refresh
// token appears only in the returned AuthResult; storage keeps its digest.
func (s *AuthService) Login(ctx context.Context, email, password string, meta LoginMeta) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.CredentialHash == "" {
		return nil, ErrInvalidCredentials
	}
	status, err := s.identities.GetStatus(ctx, ident.TenantID, ident.StatusID)
	if err != nil {
		return nil, err
	}
	if status == nil || !status.CanLogin {
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(ident.CredentialHash, []byte(password)) {
		return nil, ErrInvalidCredentials
	}

	roleName, err := s.roleName(ctx, ident)
	if err != nil {
		return nil, err
	}

	rt, err := s.refresh.Generate()
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Create(ctx, ident.TenantID, ident.ID, rt.Digest, sessionservice.CreateParams{
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		DeviceID:  rt.DeviceID,
		ExpiresAt: &rt.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.Issue(ident.ID, ident.TenantID, roleName, rt.Digest, s.accessTTL)
	if err != nil {
		return nil, err
	}
	// Best-effort; a failed timestamp write must not fail the login.
	if err := s.identities.UpdateLastLogin(ctx, ident.TenantID, ident.ID, s.now()); err != nil {
		log.Printf("auth: last login update failed for identity %s: %v", ident.ID, err)
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: rt.Raw,
		ExpiresAt:    accessExp,
		IdentityID:   ident.ID,
		TenantID:     ident.TenantID,
		Email:        ident.Email,
		RoleName:     roleName,
		Session:      sess,
	}, nil
}

// Refresh exchanges a stale-but-authentic access token plus the matching raw
// refresh token for a new pair, rotating the session digest. The role name is
// carried forward from the stale token; it is only re-resolved at login.
func (s *AuthService) Refresh(ctx context.Context, staleAccessToken, refreshToken string) (*AuthResult, error) {
	if staleAccessToken == "" || refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	ident, err := s.tokens.DecodeExpired(staleAccessToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if ident.SessionDigest == "" || !security.RefreshTokenHashEqual(refreshToken, ident.SessionDigest) {
		return nil, ErrInvalidRefreshToken
	}
	digest := security.HashRefreshToken(refreshToken)
	sess, err := s.sessions.FindActiveByDigest(ctx, ident.TenantID, digest)
	if err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if sess.Revoked() || sess.Expired(s.now()) || sess.IdentityID != ident.IdentityID {
		return nil, ErrInvalidRefreshToken
	}

	rt, err := s.refresh.Generate()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, ident.TenantID, digest, rt.Digest, rt.ExpiresAt); err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	_ = s.sessions.TouchLastSeen(ctx, ident.TenantID, rt.Digest)

	accessToken, accessExp, err := s.tokens.Issue(ident.IdentityID, ident.TenantID, ident.RoleName, rt.Digest, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: rt.Raw,
		ExpiresAt:    accessExp,
		IdentityID:   ident.IdentityID,
		TenantID:     ident.TenantID,
		RoleName:     ident.RoleName,
	}, nil
}

// Logout revokes the session backing the caller's access token. A missing
// session is treated as already logged out, not an error; revoking an
// already-revoked session is likewise a no-op.
func (s *AuthService) Logout(ctx context.Context, tenantID, sessionDigest string) error {
	if sessionDigest == "" {
		return nil
	}
	err := s.sessions.Revoke(ctx, tenantID, sessionDigest)
	if errors.Is(err, sessionservice.ErrSessionNotFound) {
		return nil
	}
	return err
}

// CurrentIdentity returns the profile for an authenticated identity.
func (s *AuthService) CurrentIdentity(ctx context.Context, tenantID, identityID string) (*Profile, error) {
	ident, err := s.identities.GetByID(ctx, tenantID, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, ErrIdentityNotFound
	}
	roleName, err := s.roleName(ctx, ident)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:          ident.ID,
		TenantID:    ident.TenantID,
		Email:       ident.Email,
		RoleName:    roleName,
		LastLoginAt: ident.LastLoginAt,
	}, nil
}

func (s *AuthService) roleName(ctx context.Context, ident *identitydomain.Identity) (string, error) {
	role, err := s.roles.ResolveRole(ctx, ident)
	if err != nil {
		return "", err
	}
	if role == nil {
		return "", nil
	}
	return role.Name, nil
}
