package container

import (
	"context"
	"fmt"

	"schedpoll/internal/calendar"
	"schedpoll/internal/config"
	"schedpoll/internal/repository"
	"schedpoll/internal/service"
	"schedpoll/internal/service/auth"
	"schedpoll/pkg/database"
	"schedpoll/pkg/logger"
	"schedpoll/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	config *config.Config
	logger *logger.Logger

	db          *database.PostgresDB
	redisClient *redis.Client

	store     repository.PollStore
	storeKind string

	authService service.AuthService
	scheduler   *service.SchedulerService
	sweeper     *service.ExpirySweeper
}

// New creates a container with all dependencies wired
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		config: cfg,
		logger: log,
	}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.db = db
	}

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redisClient = redisClient
	}

	switch {
	case c.db != nil:
		c.store = repository.NewPostgresPollStore(c.db)
		c.storeKind = "postgres"
	case c.redisClient != nil:
		c.store = repository.NewRedisPollStore(c.redisClient)
		c.storeKind = "redis"
	default:
		log.Warn("no DATABASE_URL or REDIS_URL configured, polls will not survive a restart")
		c.store = repository.NewMemoryPollStore()
		c.storeKind = "memory"
	}

	// the OAuth collaborator writes tokens into Redis; without Redis every
	// participant counts as busy through the conservative substitution
	var tokens calendar.TokenProvider = calendar.UnconfiguredTokenProvider{}
	if c.redisClient != nil {
		tokens = calendar.NewRedisTokenProvider(c.redisClient)
	} else {
		log.Warn("no token storage configured, calendar lookups will treat every participant as busy")
	}

	googleClient := calendar.NewGoogleClient(cfg.GoogleClientID, cfg.GoogleClientSecret, tokens, log)

	c.scheduler = service.NewSchedulerService(
		c.store,
		googleClient,
		googleClient,
		calendar.NewClock(),
		service.SchedulerOptions{
			DefaultGranularity:   cfg.DefaultGranularity,
			DefaultMaxCandidates: cfg.DefaultMaxCandidates,
			DefaultPollLifetime:  cfg.DefaultPollLifetime,
			FreeBusyConcurrency:  cfg.FreeBusyConcurrency,
			RegisterConcurrency:  cfg.RegisterConcurrency,
			CalendarCallTimeout:  cfg.CalendarCallTimeout,
		},
		log,
	)

	if cfg.ExpirySweepSchedule != "" {
		sweeper, err := service.NewExpirySweeper(c.scheduler, cfg.ExpirySweepSchedule, log)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.sweeper = sweeper
	}

	c.authService = auth.NewService(cfg.GatewayJWTSecret, log)

	return c, nil
}

// GetConfig returns the application configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetScheduler returns the scheduling service
func (c *Container) GetScheduler() *service.SchedulerService {
	return c.scheduler
}

// GetAuthService returns the gateway token validator
func (c *Container) GetAuthService() service.AuthService {
	return c.authService
}

// GetSweeper returns the expiry sweeper, nil when disabled
func (c *Container) GetSweeper() *service.ExpirySweeper {
	return c.sweeper
}

// StoreKind names the poll store backing this process
func (c *Container) StoreKind() string {
	return c.storeKind
}

// Close releases all held connections
func (c *Container) Close(ctx context.Context) {
	if c.sweeper != nil {
		if err := c.sweeper.Stop(ctx); err != nil {
			c.logger.WithError(err).Warn("expiry sweeper did not stop cleanly")
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if c.db != nil {
		c.db.Close()
	}
}
