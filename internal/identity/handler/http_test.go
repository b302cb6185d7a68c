package handler

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
	"crewdesk/internal/identity/service"
	roledomain "crewdesk/internal/role/domain"
	"crewdesk/internal/security"
	"crewdesk/internal/server/authcookie"
	"crewdesk/internal/server/middleware"
	sessiondomain "crewdesk/internal/session/domain"
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

type stubSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func (r *stubSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.TenantID+"/"+s.TokenHash] = &s2
	return nil
}

func (r *stubSessionRepo) GetByDigest(ctx context.Context, tenantID, tokenHash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[tenantID+"/"+tokenHash], nil
}

func (r *stubSessionRepo) Revoke(ctx context.Context, tenantID, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[tenantID+"/"+tokenHash]; ok && s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	return nil
}

func (r *stubSessionRepo) UpdateLastSeen(ctx context.Context, tenantID, tokenHash string, at time.Time) error {
	return nil
}

func (r *stubSessionRepo) RotateDigest(ctx context.Context, tenantID, oldHash, newHash string, expiresAt time.Time) error {
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

func (r *stubSessionRepo) ListByIdentity(ctx context.Context, tenantID, identityID string) ([]*sessiondomain.Session, error) {
	return nil, nil
}

type fixedResolver struct{ role *roledomain.Role }

func (f *fixedResolver) ResolveRole(ctx context.Context, ident *identitydomain.Identity) (*roledomain.Role, error) {
	return f.role, nil
}

const password = "S3cret-and-long-enough"

func newTestHandler(t *testing.T) (*Handler, *security.TokenProvider) {
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
	registry := sessionservice.NewRegistry(&stubSessionRepo{m: make(map[string]*sessiondomain.Session)}, nil)
	auth := service.NewAuthService(
		repo,
		&fixedResolver{role: &roledomain.Role{ID: "r1", TenantID: "t1", Name: "manager"}},
		registry,
		hasher,
		tokens,
		security.NewRefreshTokenSource(time.Hour),
		15*time.Minute,
		nil,
	)
	return New(auth, nil, nil, false), tokens
}

func doLogin(t *testing.T, h *Handler) (tokenResponse, *http.Cookie) {
	t.Helper()
	body := `{"email":"ana@example.com","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var res tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == authcookie.Name {
			return res, c
		}
	}
	t.Fatal("auth cookie not set")
	return res, nil
}

func TestHandler_Login(t *testing.T) {
	h, tokens := newTestHandler(t)
	res, cookie := doLogin(t, h)

	if res.AccessToken == "" || res.RefreshToken == "" || res.TokenType != "Bearer" {
		t.Errorf("response: %+v", res)
	}
	if res.Identity.ID != "i1" || res.Identity.RoleName != "manager" {
		t.Errorf("identity: %+v", res.Identity)
	}
	if cookie.Value != res.AccessToken {
		t.Error("cookie must carry the access token")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes: %+v", cookie)
	}
	if _, err := tokens.Verify(cookie.Value); err != nil {
		t.Errorf("cookie token must verify: %v", err)
	}
}

func TestHandler_LoginInvalidCredentials(t *testing.T) {
	h, _ := newTestHandler(t)
	body := `{"email":"ana@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestHandler_LoginBadJSON(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHandler_Refresh(t *testing.T) {
	h, _ := newTestHandler(t)
	login, cookie := doLogin(t, h)

	body := `{"refresh_token":"` + login.RefreshToken + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var res tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RefreshToken == login.RefreshToken {
		t.Error("refresh token must rotate")
	}
	if res.AccessToken == login.AccessToken {
		t.Error("access token must be reissued")
	}
}

func TestHandler_RefreshRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	_, cookie := doLogin(t, h)

	body := `{"refresh_token":"not-the-one"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestHandler_LogoutAndMe(t *testing.T) {
	h, _ := newTestHandler(t)
	login, _ := doLogin(t, h)

	ident := &security.Identity{
		IdentityID:    "i1",
		TenantID:      "t1",
		RoleName:      "manager",
		SessionDigest: security.HashRefreshToken(login.RefreshToken),
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), ident))
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status: got %d", rec.Code)
	}
	var profile identityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Email != "ana@example.com" || profile.RoleName != "manager" {
		t.Errorf("profile: %+v", profile)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), ident))
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status: got %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == authcookie.Name && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout must clear the auth cookie")
	}

	// The refresh token is dead after logout.
	body := `{"refresh_token":"` + login.RefreshToken + `"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec = httptest.NewRecorder()
	h.Refresh(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: got %d, want 401", rec.Code)
	}
}
