package container

import (
	"context"
	"fmt"

	"auth-be/internal/config"
	"auth-be/internal/gateway"
	"auth-be/internal/metrics"
	"auth-be/internal/provider"
	"auth-be/internal/session"
	"auth-be/internal/store"
	"auth-be/pkg/logger"
)

// healthChecker is implemented by store backends with a live connection
type healthChecker interface {
	Health(ctx context.Context) error
}

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Collector
	Provider provider.IdentityProvider
	Profiles store.ProfileStore
	Gateway  *gateway.Gateway
	Sessions *session.Manager
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	collector := metrics.NewCollector()

	// Identity provider: hosted GoTrue API when configured, in-memory
	// otherwise
	var idp provider.IdentityProvider
	if cfg.ProviderURL != "" {
		idp = provider.NewGoTrueClient(cfg.ProviderURL, cfg.ProviderServiceKey, cfg.ProviderJWTSecret, log)
		log.WithField("provider_url", cfg.ProviderURL).Info("Identity provider client initialized")
	} else {
		idp = provider.NewMemory()
		log.Warn("PROVIDER_URL not configured, using in-memory identity provider")
	}

	profiles, err := newProfileStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:   cfg,
		Logger:   log,
		Metrics:  collector,
		Provider: idp,
		Profiles: profiles,
		Gateway:  gateway.New(idp, profiles, collector, log),
		Sessions: session.NewManager(),
	}, nil
}

func newProfileStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.ProfileStore, error) {
	switch cfg.ProfileStore {
	case config.StoreBackendRedis:
		profiles, err := store.NewRedisStore(cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis profile store: %w", err)
		}
		log.Info("Redis profile store initialized")
		return profiles, nil
	case config.StoreBackendPostgres:
		profiles, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres profile store: %w", err)
		}
		log.Info("Postgres profile store initialized")
		return profiles, nil
	case config.StoreBackendMemory:
		log.Warn("Using in-memory profile store, data will not survive restarts")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown profile store backend %q", cfg.ProfileStore)
	}
}

// Close releases store connections
func (c *Container) Close() error {
	switch profiles := c.Profiles.(type) {
	case *store.RedisStore:
		return profiles.Close()
	case *store.PostgresStore:
		profiles.Close()
	}
	return nil
}

// StoreHealth checks the profile store connection; nil for backends without
// one
func (c *Container) StoreHealth(ctx context.Context) error {
	if checker, ok := c.Profiles.(healthChecker); ok {
		return checker.Health(ctx)
	}
	return nil
}

// GetGateway returns the identity gateway
func (c *Container) GetGateway() *gateway.Gateway {
	return c.Gateway
}

// GetSessionManager returns the session manager
func (c *Container) GetSessionManager() *session.Manager {
	return c.Sessions
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetMetrics returns the metrics collector
func (c *Container) GetMetrics() *metrics.Collector {
	return c.Metrics
}
