package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"auth-be/internal/config"
	"auth-be/internal/container"
	"auth-be/internal/handler"
	"auth-be/internal/middleware"
	"auth-be/pkg/logger"
)

// Resources holds everything that needs cleanup on shutdown
type Resources struct {
	container   *container.Container
	rateLimiter *middleware.RateLimiter
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	if r.container != nil {
		if err := r.container.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close store connections")
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":          cfg.Port,
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"profile_store": cfg.ProfileStore,
	}).Info("Starting auth-be server")

	ctx := context.Background()

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Provision the configured administrator once; no-op when it exists
	if err := c.Gateway.EnsureBootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("Failed to provision bootstrap admin")
	}

	loginLimiter := middleware.NewRateLimiter(middleware.DefaultLoginRateLimiterConfig(), log)

	router := setupRouter(c, loginLimiter)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	resources := &Resources{
		container:   c,
		rateLimiter: loginLimiter,
		server:      server,
		log:         log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container, loginLimiter *middleware.RateLimiter) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := DefaultAPICORSConfig(cfg.AllowedOrigins)
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(middleware.Session(c.GetSessionManager(), log))

	healthHandler := handler.NewHealthHandler(c)
	authHandler := handler.NewAuthHandler(c)
	adminHandler := handler.NewAdminHandler(c)

	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", c.GetMetrics().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/reset", authHandler.Reset)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(log))

			r.Get("/users", adminHandler.ListUsers)
			r.Post("/users", adminHandler.CreateUser)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
			r.Post("/users/{id}/promote", adminHandler.PromoteUser)
			r.Post("/users/{id}/demote", adminHandler.DemoteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","message":"endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}

// DefaultAPICORSConfig builds the CORS config for the API surface
func DefaultAPICORSConfig(origins []string) *middleware.CORSConfig {
	config := middleware.DefaultCORSConfig()
	config.AllowedOrigins = origins
	return config
}
