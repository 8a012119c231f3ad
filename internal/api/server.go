// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Each public route declares its own gateway stages (API key, origin, rate limit).
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/waitgate/internal/platform/config"
	"github.com/taibuivan/waitgate/internal/platform/constants"
	"github.com/taibuivan/waitgate/internal/platform/middleware"
	"github.com/taibuivan/waitgate/internal/platform/ratelimit"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/account"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/internal/waitlist"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     http.Handler
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process runs.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 only when every backing store answers.
	Readiness http.HandlerFunc

	// Metrics exposes the Prometheus registry. Optional.
	Metrics http.Handler

	Auth     *auth.Handler
	Account  *account.Handler
	Waitlist *waitlist.Handler
}

// Limiters holds one limiter per rate-limit policy.
type Limiters struct {
	General  *ratelimit.Limiter
	Register *ratelimit.Limiter
	Login    *ratelimit.Limiter
	Verify   *ratelimit.Limiter
	Waitlist *ratelimit.Limiter
}

// Options carries everything [NewRouter] composes.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Verifier middleware.TokenVerifier
	Observer middleware.HTTPObserver
	Limiters Limiters
	Handlers Handlers
}

// # Server Initialization

// NewServer constructs the router with [NewRouter] and binds it to an
// [http.Server] with the default timeouts.
func NewServer(opts Options) *Server {
	router := NewRouter(opts)

	return &Server{
		router: router,
		log:    opts.Logger,
		httpServer: &http.Server{
			Addr:              ":" + opts.Config.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

/*
NewRouter builds the chi router with the global middleware chain and every
route group.

Public entry points run RequireAPIKey, then ValidateOrigin, then their
per-IP limiter. Authenticated routes are limited per identity after every
access check, so a rejected request never consumes quota.
*/
func NewRouter(opts Options) http.Handler {
	cfg := opts.Config
	h := opts.Handlers
	limiters := opts.Limiters

	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	r.Use(middleware.StructuredLogger(opts.Logger, opts.Observer))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins, cfg.IsDevelopment()))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	publicGate := []func(http.Handler) http.Handler{
		middleware.RequireAPIKey(cfg.APIKey),
		middleware.ValidateOrigin(cfg.AllowedOrigins, cfg.IsProduction()),
	}
	authenticate := middleware.Authenticate(opts.Verifier)
	identityLimit := middleware.LimitByIdentity(limiters.General)
	authenticated := []func(http.Handler) http.Handler{authenticate, identityLimit}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(group chi.Router) {
			group.Group(func(public chi.Router) {
				public.Use(publicGate...)
				public.With(middleware.LimitByIP(limiters.Register)).Post("/register", h.Auth.Register)
				public.With(middleware.LimitByIP(limiters.Login)).Post("/login", h.Auth.Login)
				public.With(middleware.LimitByIP(limiters.Login)).Post("/token", h.Auth.Token)
				public.With(middleware.LimitByIP(limiters.Verify)).Post("/verify-email", h.Auth.VerifyEmail)
			})

			group.Group(func(private chi.Router) {
				private.Use(authenticated...)
				private.Post("/refresh", h.Auth.Refresh)
				private.Post("/resend-verification", h.Auth.ResendVerification)
			})
		})

		api.Route("/account", func(group chi.Router) {
			group.Use(authenticated...)
			group.Mount("/", h.Account.Routes())
		})

		api.Route("/waitlist", func(group chi.Router) {
			group.Use(publicGate...)
			group.With(middleware.LimitByIP(limiters.Waitlist)).Post("/", h.Waitlist.Join)
			group.With(middleware.LimitByIP(limiters.Verify)).Post("/verify", h.Waitlist.Verify)
			group.With(middleware.LimitByIP(limiters.Waitlist)).Post("/resend", h.Waitlist.Resend)
		})

		// Role checks run before the identity limit.
		api.Route("/admin", func(group chi.Router) {
			group.Use(authenticate, middleware.RequireRole(sec.RoleAdmin, sec.RoleModerator))
			group.Mount("/users", h.Account.AdminRoutes(middleware.RequireRole(sec.RoleAdmin), identityLimit))
			group.With(identityLimit).Get("/waitlist", h.Waitlist.List)
		})
	})

	return r
}

// # Server Lifecycle

// Handler returns the composed router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
