// Package handler exposes the auth endpoints over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"crewdesk/internal/audit"
	"crewdesk/internal/identity/service"
	"crewdesk/internal/server/authcookie"
	"crewdesk/internal/server/httpx"
	"crewdesk/internal/server/middleware"
	"crewdesk/internal/telemetry"
	telemetrydomain "crewdesk/internal/telemetry/domain"
)

// Handler serves login, refresh, logout, and profile endpoints.
type Handler struct {
	auth          *service.AuthService
	auditLogger   audit.AuditLogger
	events        telemetry.EventEmitter
	secureCookies bool
}

// New returns a Handler. auditLogger and events may be nil adapters in tests.
func New(auth *service.AuthService, auditLogger audit.AuditLogger, events telemetry.EventEmitter, secureCookies bool) *Handler {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Handler{auth: auth, auditLogger: auditLogger, events: events, secureCookies: secureCookies}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Email       string     `json:"email,omitempty"`
	RoleName    string     `json:"role_name,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Identity     identityResponse `json:"identity"`
}

// Login handles POST /auth/login. On success the access token is both
// returned in the body and set as the auth cookie; the raw refresh token
// appears in the body only, this one time.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	ip := clientIP(r)
	res, err := h.auth.Login(r.Context(), req.Email, req.Password, service.LoginMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.auditLogger.LogEvent(r.Context(), "", "", audit.ActionLoginFailure, "identity", ip, "email="+strings.TrimSpace(req.Email))
			telemetry.EmitAsync(h.events, &telemetrydomain.AuthEvent{
				Type: telemetrydomain.EventLoginFailure,
				IP:   ip,
				At:   time.Now().UTC(),
			})
			httpx.WriteUnauthorized(w, "invalid credentials")
			return
		}
		httpx.WriteInternalError(w, "login failed")
		return
	}

	authcookie.Write(w, res.AccessToken, h.secureCookies)
	h.auditLogger.LogEvent(r.Context(), res.TenantID, res.IdentityID, audit.ActionLogin, "identity/"+res.IdentityID, ip, "")
	telemetry.EmitAsync(h.events, &telemetrydomain.AuthEvent{
		Type:       telemetrydomain.EventLogin,
		TenantID:   res.TenantID,
		IdentityID: res.IdentityID,
		SessionID:  sessionID(res),
		IP:         ip,
		UserAgent:  r.UserAgent(),
		At:         time.Now().UTC(),
	})

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    res.ExpiresAt,
		Identity: identityResponse{
			ID:       res.IdentityID,
			TenantID: res.TenantID,
			Email:    res.Email,
			RoleName: res.RoleName,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh. The stale access token rides in on the
// usual credential sources (Authorization header or auth cookie); the raw
// refresh token comes in the body. On success both are replaced.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	stale := rawAccessToken(r)
	res, err := h.auth.Refresh(r.Context(), stale, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			httpx.WriteUnauthorized(w, "invalid or expired refresh token")
			return
		}
		httpx.WriteInternalError(w, "refresh failed")
		return
	}

	authcookie.Write(w, res.AccessToken, h.secureCookies)
	h.auditLogger.LogEvent(r.Context(), res.TenantID, res.IdentityID, audit.ActionRefresh, "identity/"+res.IdentityID, clientIP(r), "")
	telemetry.EmitAsync(h.events, &telemetrydomain.AuthEvent{
		Type:       telemetrydomain.EventRefresh,
		TenantID:   res.TenantID,
		IdentityID: res.IdentityID,
		IP:         clientIP(r),
		At:         time.Now().UTC(),
	})

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    res.ExpiresAt,
		Identity: identityResponse{
			ID:       res.IdentityID,
			TenantID: res.TenantID,
			RoleName: res.RoleName,
		},
	})
}

// Logout handles POST /auth/logout on the protected router. It revokes the
// session backing the caller's token and clears the auth cookie. Repeating a
// logout is a no-op.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	if err := h.auth.Logout(r.Context(), ident.TenantID, ident.SessionDigest); err != nil {
		httpx.WriteInternalError(w, "logout failed")
		return
	}
	authcookie.Clear(w, h.secureCookies)
	h.auditLogger.LogEvent(r.Context(), ident.TenantID, ident.IdentityID, audit.ActionLogout, "identity/"+ident.IdentityID, clientIP(r), "")
	telemetry.EmitAsync(h.events, &telemetrydomain.AuthEvent{
		Type:       telemetrydomain.EventLogout,
		TenantID:   ident.TenantID,
		IdentityID: ident.IdentityID,
		At:         time.Now().UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me on the protected router.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	p, err := h.auth.CurrentIdentity(r.Context(), ident.TenantID, ident.IdentityID)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			httpx.WriteNotFound(w, "identity not found")
			return
		}
		httpx.WriteInternalError(w, "profile lookup failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identityResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Email:       p.Email,
		RoleName:    p.RoleName,
		LastLoginAt: p.LastLoginAt,
	})
}

func sessionID(res *service.AuthResult) string {
	if res.Session == nil {
		return ""
	}
	return res.Session.ID
}

const bearerPrefix = "bearer "

// rawAccessToken returns the unverified access token from the Authorization
// header or the auth cookie, header first.
func rawAccessToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(v[len(bearerPrefix):])
	}
	if c, ok := authcookie.Read(r); ok {
		return c
	}
	return ""
}

// clientIP returns the requester's IP, honoring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
