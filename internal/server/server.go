// Package server assembles the HTTP surface: router, middleware stack, and
// listener lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identityhandler "crewdesk/internal/identity/handler"
	roledomain "crewdesk/internal/role/domain"
	"crewdesk/internal/security"
	"crewdesk/internal/server/httpx"
	"crewdesk/internal/server/middleware"
	sessionhandler "crewdesk/internal/session/handler"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the HTTP server.
type Deps struct {
	Addr     string
	Tokens   *security.TokenProvider
	Auth     *identityhandler.Handler
	Sessions *sessionhandler.Handler
	Guard    middleware.PermissionChecker
	Version  string
}

// Server is the HTTP server for the auth subsystem.
type Server struct {
	server  *http.Server
	version string
}

// New creates the server with all routes and middleware wired. It does not
// listen until Run is called.
func New(deps Deps) (*Server, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if deps.Auth == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("handlers are required")
	}
	if deps.Guard == nil {
		return nil, fmt.Errorf("permission guard is required")
	}
	s := &Server{version: deps.Version}
	s.server = &http.Server{
		Addr:              deps.Addr,
		Handler:           s.buildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) buildRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	gateway := middleware.NewGateway(middleware.NewJWTScheme(deps.Tokens))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", deps.Auth.Login)
		r.Post("/auth/refresh", deps.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(gateway.Authenticate)

			r.Post("/auth/logout", deps.Auth.Logout)
			r.Get("/auth/me", deps.Auth.Me)

			r.Get("/sessions", deps.Sessions.ListMine)
			r.Delete("/sessions/{digest}", deps.Sessions.Revoke)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(deps.Guard, roledomain.PermissionManageSessions))
				r.Get("/identities/{id}/sessions", deps.Sessions.ListForIdentity)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run listens and serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
