// Package handler exposes session listing and revocation over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"crewdesk/internal/audit"
	roledomain "crewdesk/internal/role/domain"
	"crewdesk/internal/server/httpx"
	"crewdesk/internal/server/middleware"
	"crewdesk/internal/session/domain"
	"crewdesk/internal/session/service"
	"crewdesk/internal/telemetry"
	telemetrydomain "crewdesk/internal/telemetry/domain"
)

// Handler serves the session endpoints.
type Handler struct {
	registry    *service.Registry
	checker     middleware.PermissionChecker
	auditLogger audit.AuditLogger
	events      telemetry.EventEmitter
}

// New returns a Handler. auditLogger may be nil.
func New(registry *service.Registry, checker middleware.PermissionChecker, auditLogger audit.AuditLogger, events telemetry.EventEmitter) *Handler {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Handler{registry: registry, checker: checker, auditLogger: auditLogger, events: events}
}

type sessionResponse struct {
	ID          string     `json:"id"`
	IdentityID  string     `json:"identity_id"`
	TokenDigest string     `json:"token_digest"`
	DeviceID    string     `json:"device_id,omitempty"`
	IP          string     `json:"ip,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// ListMine handles GET /sessions: the caller's own sessions, active and
// revoked, most recently seen first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	sessions, err := h.registry.ListForIdentity(r.Context(), ident.TenantID, ident.IdentityID)
	if err != nil {
		httpx.WriteInternalError(w, "session listing failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponses(sessions))
}

// ListForIdentity handles GET /identities/{id}/sessions. The router guards it
// with the manage_sessions permission.
func (h *Handler) ListForIdentity(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	identityID := chi.URLParam(r, "id")
	if identityID == "" {
		httpx.WriteBadRequest(w, "missing identity id")
		return
	}
	sessions, err := h.registry.ListForIdentity(r.Context(), ident.TenantID, identityID)
	if err != nil {
		httpx.WriteInternalError(w, "session listing failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponses(sessions))
}

// Revoke handles DELETE /sessions/{digest}. Callers may always revoke their
// own sessions; revoking another identity's session requires the
// manage_sessions permission. A digest that does not exist in the caller's
// tenant is a plain 404, whatever the reason. Revoking an already-revoked
// session succeeds without changing its revocation time.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	digest := chi.URLParam(r, "digest")
	if digest == "" {
		httpx.WriteBadRequest(w, "missing session digest")
		return
	}

	sess, err := h.registry.FindActiveByDigest(r.Context(), ident.TenantID, digest)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteNotFound(w, "session not found")
			return
		}
		httpx.WriteInternalError(w, "session lookup failed")
		return
	}
	if sess.IdentityID != ident.IdentityID {
		allowed, err := h.checker.Check(r.Context(), ident.TenantID, ident.IdentityID, roledomain.PermissionManageSessions)
		if err != nil {
			httpx.WriteInternalError(w, "permission check failed")
			return
		}
		if !allowed {
			// Indistinguishable from a missing digest.
			httpx.WriteNotFound(w, "session not found")
			return
		}
	}

	if err := h.registry.Revoke(r.Context(), ident.TenantID, digest); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteNotFound(w, "session not found")
			return
		}
		httpx.WriteInternalError(w, "session revoke failed")
		return
	}
	h.auditLogger.LogEvent(r.Context(), ident.TenantID, ident.IdentityID, audit.ActionSessionRevoke, "session/"+sess.ID, "", "")
	telemetry.EmitAsync(h.events, &telemetrydomain.AuthEvent{
		Type:       telemetrydomain.EventSessionRevoked,
		TenantID:   ident.TenantID,
		IdentityID: sess.IdentityID,
		SessionID:  sess.ID,
		At:         time.Now().UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func toResponses(sessions []*domain.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:          s.ID,
			IdentityID:  s.IdentityID,
			TokenDigest: s.TokenHash,
			DeviceID:    s.DeviceID,
			IP:          s.IP,
			UserAgent:   s.UserAgent,
			CreatedAt:   s.CreatedAt,
			LastSeenAt:  s.LastSeenAt,
			ExpiresAt:   s.ExpiresAt,
			RevokedAt:   s.RevokedAt,
		})
	}
	return out
}
