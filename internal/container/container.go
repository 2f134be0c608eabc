package container

import (
	"context"
	"fmt"

	"pemilihan-be/internal/config"
	"pemilihan-be/internal/repository"
	"pemilihan-be/internal/repository/memory"
	"pemilihan-be/internal/service"
	"pemilihan-be/internal/service/auth"
	"pemilihan-be/pkg/database"
	"pemilihan-be/pkg/logger"
	"pemilihan-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB // nil in demo mode
	RedisClient  *redis.Client        // nil when Redis is not configured or unreachable
	Repositories *repository.Repositories
	Services     *service.Services
	Listener     *service.ChangeListener // nil unless Postgres backs the store
}

// New creates a new dependency injection container. Without DATABASE_URL
// the container runs on a seeded in-memory store.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if cfg.DemoMode() {
		logger.Warn("DATABASE_URL not configured, running in demo mode with an in-memory store")
		c.Repositories = memory.NewStore().Repositories()
		seeded, err := repository.SeedCandidates(ctx, c.Repositories.Candidate, repository.DemoCandidates())
		if err != nil {
			return nil, fmt.Errorf("failed to seed demo candidates: %w", err)
		}
		logger.WithField("candidates", seeded).Info("Demo candidates seeded")
	} else {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.Repositories = &repository.Repositories{
			Voter:     repository.NewVoterRepository(db),
			Candidate: repository.NewCandidateRepository(db),
			Election:  repository.NewElectionRepository(db),
		}
		logger.Info("Database connection established")
	}

	// Initialize Redis client if Redis URL is configured
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Named("redis").Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			c.RedisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	cache := service.NewCacheService(c.RedisClient, logger.Named("cache").Logger, cfg.ResultsCacheTTL)
	aggregator := service.NewTallyAggregator(c.Repositories.Voter, c.Repositories.Candidate, logger)
	guard := service.NewVoteGuard(c.Repositories, cfg.EnforceElectionWindow, logger)

	c.Services = &service.Services{
		Auth:       auth.NewService(cfg.SupabaseJWTSecret, logger),
		Voting:     service.NewVotingService(c.Repositories, guard, aggregator, cache, logger),
		Candidates: service.NewCandidateService(c.Repositories.Candidate, aggregator, cache, logger),
		Voters:     service.NewVoterService(c.Repositories.Voter, aggregator, cache, logger),
		Election:   service.NewElectionService(c.Repositories.Election, logger),
		Aggregator: aggregator,
		Cache:      cache,
		Limiter:    service.NewBallotLimiter(c.RedisClient, cfg.BallotRateLimit, cfg.BallotRateWindow, logger),
	}

	if c.DB != nil && cfg.EnableChangeListener {
		c.Listener = service.NewChangeListener(c.DB, aggregator, cache, logger)
		c.Services.Voting.SetRefreshRequester(c.Listener)
	}

	return c, nil
}

// Start launches background workers and primes the results cache
func (c *Container) Start(ctx context.Context) error {
	if c.Listener != nil {
		if err := c.Listener.Start(ctx); err != nil {
			return fmt.Errorf("failed to start change listener: %w", err)
		}
	}

	if _, err := c.Services.Voting.Refresh(ctx); err != nil {
		c.Logger.WithError(err).Warn("Initial tally refresh failed")
	}
	return nil
}

// Cleanup stops background workers and closes connections
func (c *Container) Cleanup(ctx context.Context) error {
	var errs []error

	if c.Listener != nil {
		if err := c.Listener.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("change listener shutdown: %w", err))
		}
	}

	if c.Services != nil && c.Services.Voting != nil {
		c.Services.Voting.Close()
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("Redis close: %w", err))
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}
	return nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// Mode reports "postgres" or "demo"
func (c *Container) Mode() string {
	if c.DB == nil {
		return "demo"
	}
	return "postgres"
}
