// Package server wires the stashd HTTP API: it assembles the database,
// repositories, auth services and handlers, mounts them on a chi router and
// runs the server with graceful shutdown. main.go only builds a Config and
// calls New + Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/handler"
	"github.com/sakif/stash/internal/middleware"
	sqliteRepo "github.com/sakif/stash/internal/repository/sqlite"
)

// Config holds everything stashd needs to run. The GitHub fields are
// optional; when ClientID is empty the OAuth routes are not registered.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection; the connection is
// closed during shutdown in Start.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes mounts middleware and all route handlers.
//
// POST /auth/signup                → register + session
// POST /auth/signin                → email/password session
// POST /auth/refresh               → exchange refresh token
// POST /auth/signout               → end session            (auth)
// GET  /auth/session               → identity check         (auth)
// GET  /auth/github/login          → OAuth redirect         (if configured)
// GET  /auth/github/callback       → OAuth completion       (if configured)
// GET  /api/items                  → owned items            (auth)
// GET  /api/shared                 → items shared with me   (auth)
// POST /api/items                  → create item            (auth)
// PATCH  /api/items/{id}           → partial update         (auth)
// DELETE /api/items/{id}           → delete item            (auth)
// POST   /api/items/{id}/share     → share with a user      (auth)
// DELETE /api/items/{id}/shares    → revoke own shares      (auth)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(
		s.db.Accounts(), tokens, auth.NewPasswordService(), github, s.logger,
	)
	itemHandler := handler.NewItemHandler(s.db.Items(), s.db.Shares(), s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/signin", authHandler.HandleSignIn)
		r.Post("/refresh", authHandler.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/signout", authHandler.HandleSignOut)
			r.Get("/session", authHandler.HandleSession)
		})

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/items", itemHandler.HandleListOwned)
		r.Get("/shared", itemHandler.HandleListShared)
		r.Post("/items", itemHandler.HandleCreate)
		r.Patch("/items/{id}", itemHandler.HandleUpdate)
		r.Delete("/items/{id}", itemHandler.HandleDelete)
		r.Post("/items/{id}/share", itemHandler.HandleShare)
		r.Delete("/items/{id}/shares", itemHandler.HandleDeleteShares)
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests (30s budget) and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
