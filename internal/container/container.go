package container

import (
	"context"
	"fmt"

	"portfolio-be/internal/config"
	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/internal/service"
	"portfolio-be/internal/service/auth"
	"portfolio-be/pkg/database"
	"portfolio-be/pkg/logger"
	"portfolio-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Services     *service.Services
}

// New opens the configured visit store, connects to Redis if configured and
// wires the services. The caller owns the container and must Close it.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	visitRepo, err := openVisitRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.WithField("driver", cfg.StoreDriver).Info("Visit store opened")

	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding with per-instance count cache")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding with per-instance count cache")
	}

	var countCache service.CountCache
	if redisClient != nil {
		countCache = service.NewRedisCountCache(redisClient, cfg.VisitCountTTL, logger)
	} else {
		countCache = service.NewMemoryCountCache(cfg.VisitCountTTL, nil)
	}

	repos := &repository.Repositories{
		Visit:   visitRepo,
		Content: repository.NewFileContentRepository(cfg.ContentDir),
	}

	quota := domain.Quota{Limit: int64(cfg.VisitDailyLimit), Window: cfg.VisitWindow}
	services := &service.Services{
		Auth:    auth.NewService(cfg.AdminJWTSecret, logger),
		Visit:   service.NewVisitService(repos.Visit, countCache, quota, logger),
		Content: service.NewContentService(repos.Content, cfg.DefaultLocale, logger),
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		RedisClient:  redisClient,
		Repositories: repos,
		Services:     services,
	}, nil
}

func openVisitRepository(ctx context.Context, cfg *config.Config) (repository.VisitRepository, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return repository.NewSQLiteVisitRepository(db), nil
	case config.DriverPostgres:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return repository.NewVisitRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetVisitService returns the visit service
func (c *Container) GetVisitService() service.VisitService {
	return c.Services.Visit
}

// GetContentService returns the content service
func (c *Container) GetContentService() service.ContentService {
	return c.Services.Content
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// Health checks every backing dependency and returns one entry per dependency
func (c *Container) Health(ctx context.Context) map[string]error {
	checks := map[string]error{
		"store": c.Repositories.Visit.Health(ctx),
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Health(ctx)
	}
	return checks
}

// Close releases Redis and the visit store
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if err := c.Repositories.Visit.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close completed with %d errors: %v", len(errs), errs)
	}
	return nil
}
