package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/glukw/sshterm/internal/access"
	"github.com/glukw/sshterm/internal/bridge"
	"github.com/glukw/sshterm/internal/config"
	"github.com/glukw/sshterm/internal/database"
	"github.com/glukw/sshterm/internal/handlers"
	"github.com/glukw/sshterm/internal/logging"
	"github.com/glukw/sshterm/internal/middleware"
	"github.com/glukw/sshterm/internal/session"
)

func main() {
	// Handle CLI commands before starting the server
	if len(os.Args) > 1 && os.Args[1] == "--gen-token" {
		runGenToken()
		return
	}

	config.Load()
	logging.Init()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	log.Printf("Config: AuthEnabled=%v, AllowedIPs=%q, SessionTimeout=%dm, MaxSessions=%d",
		config.AuthEnabled(), config.Cfg.AllowedIPs, config.Cfg.SessionTimeout, config.Cfg.MaxSessions)

	guard := access.NewGuard(config.Cfg.AllowedIPs, config.Cfg.SecretKey,
		config.SessionMaxAge(), config.AuthEnabled())
	handlers.Guard = guard

	registry := bridge.NewRegistry()
	handlers.Registry = registry

	if config.Cfg.MaxSessions > 0 {
		handlers.SessionSem = semaphore.NewWeighted(int64(config.Cfg.MaxSessions))
		log.Printf("Session cap: %d concurrent terminals", config.Cfg.MaxSessions)
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.IPAllowlist(guard))

	// Public endpoints
	r.Get("/health", handlers.HealthCheck)
	r.Post("/api/auth/login", handlers.Login)
	r.Post("/api/auth/logout", handlers.Logout)
	r.Get("/api/auth/status", handlers.AuthStatus)

	// Protected API
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(guard))

		r.Get("/api/commands", handlers.ListCommands)
		r.Post("/api/commands", handlers.CreateCommand)
		r.Delete("/api/commands/{id}", handlers.DeleteCommand)

		r.Get("/api/sessions", handlers.ListSessions)
		r.Delete("/api/sessions/{id}", handlers.CloseSession)
	})

	// The terminal endpoint runs the guard itself: session middleware
	// would not cover the long-lived upgraded connection.
	r.Get("/ws/ssh", handlers.SSHTerminalWS)

	// Terminal UI: the login page and its assets stay public, everything
	// else requires a session when auth is configured.
	spa := middleware.NewSPAHandler(os.DirFS(config.Cfg.StaticDir))
	r.Get("/login", spa.ServeHTTP)
	r.Handle("/static/login/*", spa)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(guard))
		r.Handle("/*", spa)
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	// End live terminal sessions first so their handlers return and the
	// HTTP server can drain.
	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// runGenToken prints a session token for non-browser clients, such as
// wscat or scripted health checks against the terminal endpoint.
func runGenToken() {
	config.Load()
	token, err := session.Issue(config.Cfg.SecretKey)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "Token valid for %d minutes.\n", config.Cfg.SessionTimeout)
}
