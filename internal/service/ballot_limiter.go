package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/logger"
	"pemilihan-be/pkg/redis"
)

// BallotLimiter caps ballot submissions per client IP with a fixed window
// counter in Redis. Without Redis, or with a zero limit, every request passes.
type BallotLimiter struct {
	redisClient *redis.Client
	limit       int
	window      time.Duration
	logger      *logger.Logger
}

func NewBallotLimiter(redisClient *redis.Client, limit int, window time.Duration, log *logger.Logger) *BallotLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &BallotLimiter{
		redisClient: redisClient,
		limit:       limit,
		window:      window,
		logger:      log.Named("ballot_limiter"),
	}
}

// Enabled reports whether requests are being counted
func (l *BallotLimiter) Enabled() bool {
	return l.redisClient != nil && l.limit > 0
}

// Allow counts one request from ipAddress
func (l *BallotLimiter) Allow(ctx context.Context, ipAddress string) (*domain.RateLimitInfo, error) {
	if !l.Enabled() {
		return &domain.RateLimitInfo{Limit: l.limit, IsAllowed: true}, nil
	}

	key := l.redisClient.KeyBuilder.KeyBallotLimit(hashClient(ipAddress))

	count, err := l.redisClient.Incr(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to increment ballot counter: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := l.redisClient.Expire(ctx, key, l.window); err != nil {
			l.logger.WithError(err).Warn("Failed to set ballot counter expiry")
		}
	}

	info := &domain.RateLimitInfo{
		RequestCount: count,
		Limit:        l.limit,
		IsAllowed:    count <= int64(l.limit),
	}

	if !info.IsAllowed {
		ttl, err := l.redisClient.TTL(ctx, key)
		if err != nil || ttl <= 0 {
			ttl = l.window
		}
		info.RetryAfter = ttl

		l.logger.WithFields(map[string]interface{}{
			"client_hash":   hashClient(ipAddress)[:8],
			"request_count": count,
		}).Warn("Ballot rate limit exceeded")
	}

	return info, nil
}

// hashClient keeps raw IPs out of Redis keys and logs
func hashClient(ipAddress string) string {
	sum := sha256.Sum256([]byte(ipAddress))
	return fmt.Sprintf("%x", sum)
}
