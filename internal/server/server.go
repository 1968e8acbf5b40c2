// Package server is the composition root: it opens the stores, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → Stores (sqlite.DB, blob.Store)
//	  → services (Auth, Program, Dashboard, Follow)
//	  → handlers (Home, Auth, Dashboard, API)
//	  → chi routes
//
// Nothing below this package constructs its own dependencies, and there
// are no package-level handles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/config"
	"github.com/sakif/livt/internal/handler"
	"github.com/sakif/livt/internal/middleware"
	"github.com/sakif/livt/internal/service"
)

// Server represents the HTTP server and the stores it owns. The stores are
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	stores *Stores
}

// New opens the stores and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStores(cfg, stores, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStores wires the routes on top of already opened stores. Tests use
// it with an in-memory database.
func NewWithStores(cfg *config.Config, stores *Stores, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		stores: stores,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                     → database ping
//	GET  /static/*                    → CSS, JS
//	GET  /files/*                     → stored files (fs driver only, drafts for their creator)
//	GET  /, /index.html               → home page
//	GET  /login.html                  → sign-in / create-account page
//	POST /auth/signup|signin|logout   → auth actions
//	GET  /auth/github/login|callback  → GitHub OAuth (when configured)
//	GET  /creatordashboard.html       → dashboard
//	GET  /upload.html                 → dashboard upload tab
//	POST /programs                    → upload
//	POST /programs/{id}/toggle|delete → manage
//	GET  /programs/{id}/open          → tracked view
//	GET  /download.html?id=           → tracked download
//	/api/...                          → JSON API, session required
//
// MIDDLEWARE ORDER: RequestID first so the logger can print it, Recoverer
// inside the logger so a panic is logged as a 500.
func (s *Server) setupRoutes() error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	db := s.stores.DB
	authService := service.NewAuthService(db, tokens, passwords, s.logger)
	programService := service.NewProgramService(db, db, s.stores.Blobs, s.logger)
	dashboardService := service.NewDashboardService(db, db, db, s.logger)
	followService := service.NewFollowService(db, db, s.logger)

	renderer, err := handler.NewRenderer(cfg.HTTP.TemplateDir, s.logger)
	if err != nil {
		return err
	}

	var github *auth.GitHubProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	home := handler.NewHomeHandler(authService, renderer, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, renderer, tokens.TTL(), cfg.Auth.CookieSecure, s.logger)
	dash := handler.NewDashboardHandler(authService, dashboardService, programService, renderer, cfg.HTTP.MaxUploadMB<<20, s.logger)
	api := handler.NewAPIHandler(authService, dashboardService, programService, followService, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	fileServer := http.FileServer(http.Dir(cfg.HTTP.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/", home.HandleIndex)
		r.Get("/index.html", home.HandleIndex)
		r.Get("/login.html", authHandler.HandleLoginPage)
		r.Post("/auth/signup", authHandler.HandleSignUp)
		r.Post("/auth/signin", authHandler.HandleSignIn)
		r.Post("/auth/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		r.Get("/creatordashboard.html", dash.HandleDashboard)
		r.Get("/upload.html", dash.HandleUploadPage)
		r.Get("/download.html", dash.HandleDownload)
		r.Post("/programs", dash.HandleUpload)
		r.Post("/programs/{id}/toggle", dash.HandleToggle)
		r.Post("/programs/{id}/delete", dash.HandleDelete)
		r.Get("/programs/{id}/open", dash.HandleOpen)

		if s.stores.Files != nil {
			files := handler.NewFileHandler(programService, s.stores.Files, s.logger)
			r.Handle(filesPrefix+"/*", http.StripPrefix(filesPrefix, files))
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", api.HandleMe)
		r.Patch("/me", api.HandleUpdateMe)
		r.Route("/creators/{uid}", func(r chi.Router) {
			r.Get("/overview", api.HandleOverview)
			r.Get("/analytics", api.HandleAnalytics)
			r.Get("/programs", api.HandlePrograms)
			r.Post("/follow", api.HandleFollow)
			r.Delete("/follow", api.HandleUnfollow)
		})
	})

	return nil
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.stores.DB.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start runs the HTTP server until ctx is cancelled (SIGINT/SIGTERM in
// main), then shuts down gracefully:
//
//  1. stop accepting connections
//  2. wait up to HTTP_SHUTDOWN_TIMEOUT for in-flight requests
//  3. close the database
func (s *Server) Start(ctx context.Context) error {
	defer s.stores.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.HTTP.ReadTimeout,
		WriteTimeout:      s.config.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.HTTP.Port)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
