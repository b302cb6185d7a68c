package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	identitydomain "crewdesk/internal/identity/domain"
	identityhandler "crewdesk/internal/identity/handler"
	identityservice "crewdesk/internal/identity/service"
	roledomain "crewdesk/internal/role/domain"
	"crewdesk/internal/security"
	sessiondomain "crewdesk/internal/session/domain"
	sessionhandler "crewdesk/internal/session/handler"
	sessionservice "crewdesk/internal/session/service"
)

type stubIdentityRepo struct {
	ident  *identitydomain.Identity
	status *identitydomain.Status
}

func (r *stubIdentityRepo) GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error) {
	if r.ident != nil && r.ident.Email == email {
		return r.ident, nil
	}
	return nil, nil
}

func (r *stubIdentityRepo) GetByID(ctx context.Context, tenantID, id string) (*identitydomain.Identity, error) {
	if r.ident != nil && r.ident.TenantID == tenantID && r.ident.ID == id {
		return r.ident, nil
	}
	return nil, nil
}

func (r *stubIdentityRepo) GetStatus(ctx context.Context, tenantID, statusID string) (*identitydomain.Status, error) {
	if r.status != nil && r.status.TenantID == tenantID && r.status.ID == statusID {
		return r.status, nil
	}
	return nil, nil
}

func (r *stubIdentityRepo) UpdateLastLogin(ctx context.Context, tenantID, id string, at time.Time) error {
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.TenantID+"/"+s.TokenHash] = &s2
	return nil
}

func (r *memSessionRepo) GetByDigest(ctx context.Context, tenantID, tokenHash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[tenantID+"/"+tokenHash], nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, tenantID, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[tenantID+"/"+tokenHash]; ok && s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	return nil
}

func (r *memSessionRepo) UpdateLastSeen(ctx context.Context, tenantID, tokenHash string, at time.Time) error {
	return nil
}

func (r *memSessionRepo) RotateDigest(ctx context.Context, tenantID, oldHash, newHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[tenantID+"/"+oldHash]; ok {
		delete(r.m, tenantID+"/"+oldHash)
		s.PreviousTokenHash = s.TokenHash
		s.TokenHash = newHash
		s.ExpiresAt = &expiresAt
		r.m[tenantID+"/"+newHash] = s
	}
	return nil
}

func (r *memSessionRepo) ListByIdentity(ctx context.Context, tenantID, identityID string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.TenantID == tenantID && s.IdentityID == identityID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubResolver struct{ role *roledomain.Role }

func (s *stubResolver) ResolveRole(ctx context.Context, ident *identitydomain.Identity) (*roledomain.Role, error) {
	return s.role, nil
}

type stubGuard struct{ allowed bool }

func (g *stubGuard) Check(ctx context.Context, tenantID, identityID, permission string) (bool, error) {
	return g.allowed, nil
}

const password = "S3cret-and-long-enough"

func newTestServer(t *testing.T) (*Server, *stubGuard) {
	t.Helper()
	hasher := security.NewHasher(4)
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	repo := &stubIdentityRepo{
		ident: &identitydomain.Identity{
			ID:             "i1",
			TenantID:       "t1",
			Email:          "ana@example.com",
			CredentialHash: hash,
			RoleID:         "r1",
			StatusID:       "st1",
		},
		status: &identitydomain.Status{ID: "st1", TenantID: "t1", Name: "active", CanLogin: true},
	}
	registry := sessionservice.NewRegistry(&memSessionRepo{m: make(map[string]*sessiondomain.Session)}, nil)
	auth := identityservice.NewAuthService(
		repo,
		&stubResolver{role: &roledomain.Role{ID: "r1", TenantID: "t1", Name: "manager"}},
		registry,
		hasher,
		tokens,
		security.NewRefreshTokenSource(time.Hour),
		15*time.Minute,
		nil,
	)
	guard := &stubGuard{}
	srv, err := New(Deps{
		Addr:     ":0",
		Tokens:   tokens,
		Auth:     identityhandler.New(auth, nil, nil, false),
		Sessions: sessionhandler.New(registry, guard, nil, nil),
		Guard:    guard,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, guard
}

func login(t *testing.T, h http.Handler) (accessToken, refreshToken string) {
	t.Helper()
	body := `{"email":"ana@example.com","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rec.Code, rec.Body.String())
	}
	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.AccessToken, res.RefreshToken
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: got %d", rec.Code)
	}
}

func TestServer_LoginThenMe(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	access, _ := login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: got %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ana@example.com") {
		t.Errorf("me body: %s", rec.Body.String())
	}
}

func TestServer_ProtectedRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, target := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodDelete, "/api/v1/sessions/xyz"},
		{http.MethodGet, "/api/v1/identities/i2/sessions"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(target.method, target.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: got %d, want 401", target.method, target.path, rec.Code)
		}
	}
}

func TestServer_AdminSessionListingGuarded(t *testing.T) {
	srv, guard := newTestServer(t)
	h := srv.Handler()
	access, _ := login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identities/i1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("without permission: got %d, want 403", rec.Code)
	}

	guard.allowed = true
	req = httptest.NewRequest(http.MethodGet, "/api/v1/identities/i1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with permission: got %d, want 200", rec.Code)
	}
}

func TestServer_SessionLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	access, refresh := login(t, h)
	digest := security.HashRefreshToken(refresh)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), digest) {
		t.Error("own session must be listed under its digest")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+digest, nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: got %d", rec.Code)
	}

	// The revoked session can no longer fuel a refresh.
	body := `{"refresh_token":"` + refresh + `"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after revoke: got %d, want 401", rec.Code)
	}
}
