package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/redis"

	"go.uber.org/zap"
)

// CacheService implements cache-aside for results, stats and candidates.
// A nil Redis client turns every method into a pass-through.
type CacheService struct {
	redis      *redis.Client
	logger     *zap.Logger
	resultsTTL time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger, resultsTTL time.Duration) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resultsTTL <= 0 {
		resultsTTL = redis.TTLResults
	}
	return &CacheService{
		redis:      redisClient,
		logger:     logger,
		resultsTTL: resultsTTL,
	}
}

// Enabled reports whether a Redis client is configured
func (c *CacheService) Enabled() bool {
	return c.redis != nil
}

// GetResultsWithCache returns cached results or computes them through dbFallback
func (c *CacheService) GetResultsWithCache(ctx context.Context, dbFallback func(ctx context.Context) (*domain.Results, error)) (*domain.Results, error) {
	if !c.Enabled() {
		return dbFallback(ctx)
	}

	var results domain.Results
	if c.readJSON(ctx, c.redis.KeyBuilder.KeyResults(), &results) {
		return &results, nil
	}

	fresh, err := dbFallback(ctx)
	if err != nil {
		return nil, err
	}

	// A refresh may have stored newer results while fresh was computed
	c.fillJSON(ctx, c.redis.KeyBuilder.KeyResults(), fresh, c.resultsTTL)
	return fresh, nil
}

// GetStatsWithCache returns cached dashboard stats or computes them through dbFallback
func (c *CacheService) GetStatsWithCache(ctx context.Context, dbFallback func(ctx context.Context) (*domain.ElectionStats, error)) (*domain.ElectionStats, error) {
	if !c.Enabled() {
		return dbFallback(ctx)
	}

	var stats domain.ElectionStats
	if c.readJSON(ctx, c.redis.KeyBuilder.KeyStats(), &stats) {
		return &stats, nil
	}

	fresh, err := dbFallback(ctx)
	if err != nil {
		return nil, err
	}

	go c.setJSONAsync(c.redis.KeyBuilder.KeyStats(), fresh, redis.TTLStats)
	return fresh, nil
}

// GetCandidatesWithCache returns the cached candidate list or loads it through dbFallback
func (c *CacheService) GetCandidatesWithCache(ctx context.Context, dbFallback func(ctx context.Context) ([]domain.Candidate, error)) ([]domain.Candidate, error) {
	if !c.Enabled() {
		return dbFallback(ctx)
	}

	var candidates []domain.Candidate
	if c.readJSON(ctx, c.redis.KeyBuilder.KeyCandidatesAll(), &candidates) {
		return candidates, nil
	}

	fresh, err := dbFallback(ctx)
	if err != nil {
		return nil, err
	}

	go c.setJSONAsync(c.redis.KeyBuilder.KeyCandidatesAll(), fresh, redis.TTLCandidates)
	return fresh, nil
}

// GetCandidateWithCache returns one cached candidate or loads it through dbFallback.
// A nil candidate from the fallback is not cached.
func (c *CacheService) GetCandidateWithCache(ctx context.Context, candidateID int64, dbFallback func(ctx context.Context, id int64) (*domain.Candidate, error)) (*domain.Candidate, error) {
	if !c.Enabled() {
		return dbFallback(ctx, candidateID)
	}

	key := c.redis.KeyBuilder.KeyCandidateByID(candidateID)
	var candidate domain.Candidate
	if c.readJSON(ctx, key, &candidate) {
		return &candidate, nil
	}

	fresh, err := dbFallback(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	if fresh != nil {
		go c.setJSONAsync(key, fresh, redis.TTLCandidates)
	}
	return fresh, nil
}

// StoreResults overwrites the results cache with a fresh projection
func (c *CacheService) StoreResults(ctx context.Context, results *domain.Results) error {
	if !c.Enabled() {
		return nil
	}
	return c.setJSON(ctx, c.redis.KeyBuilder.KeyResults(), results, c.resultsTTL)
}

// PublishResults announces a projection on the results channel
func (c *CacheService) PublishResults(ctx context.Context, results *domain.Results) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	receivers, err := c.redis.Publish(ctx, c.redis.KeyBuilder.ChannelResults(), string(data))
	if err != nil {
		return err
	}

	c.logger.Debug("Results published",
		zap.Int64("receivers", receivers),
		zap.Int("total_votes", results.TotalVotes))
	return nil
}

// InvalidateStats drops the stats cache after voters change
func (c *CacheService) InvalidateStats(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.redis.Delete(ctx, c.redis.KeyBuilder.KeyStats())
}

// InvalidateCandidateCaches invalidates candidate caches after an admin edit
func (c *CacheService) InvalidateCandidateCaches(candidateID int64) {
	if !c.Enabled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		keysToDelete := []string{
			c.redis.KeyBuilder.KeyCandidatesAll(),
			c.redis.KeyBuilder.KeyCandidateByID(candidateID),
			c.redis.KeyBuilder.KeyResults(),
			c.redis.KeyBuilder.KeyStats(),
		}

		if err := c.redis.Delete(ctx, keysToDelete...); err != nil {
			c.logger.Error("Failed to invalidate cache keys",
				zap.Strings("keys", keysToDelete),
				zap.Error(err))
			return
		}

		c.logger.Debug("Candidate caches invalidated", zap.Int64("candidate_id", candidateID))
	}()
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}

// readJSON reports a hit only when the key exists and decodes cleanly
func (c *CacheService) readJSON(ctx context.Context, key string, dest interface{}) bool {
	cachedData, err := c.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			c.logger.Warn("Cache error, falling back to database", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal([]byte(cachedData), dest); err != nil {
		c.logger.Warn("Cache corrupted, falling back to database", zap.String("key", key), zap.Error(err))
		return false
	}

	c.logger.Debug("Cache hit", zap.String("key", key))
	return true
}

func (c *CacheService) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.redis.Set(ctx, key, string(data), ttl)
}

// fillJSON writes a miss result unless the key was set meanwhile
func (c *CacheService) fillJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to marshal cache value", zap.String("key", key), zap.Error(err))
		return
	}

	stored, err := c.redis.SetNX(ctx, key, string(data), ttl)
	if err != nil {
		c.logger.Warn("Failed to cache value", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		c.logger.Debug("Cache already refreshed, fill skipped", zap.String("key", key))
	}
}

// setJSONAsync fills the cache after a miss (fire and forget)
func (c *CacheService) setJSONAsync(key string, value interface{}, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.setJSON(ctx, key, value, ttl); err != nil {
		c.logger.Error("Failed to cache value", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("Value cached", zap.String("key", key))
}
