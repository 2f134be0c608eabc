package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// Cache key constants
const (
	KeyResults       = "election:results"
	KeyStats         = "election:stats"
	KeyCandidatesAll = "election:candidates:all"
	KeyCandidateByID = "election:candidate:%d"
	KeyBallotLimit   = "election:ratelimit:ballot:%s" // hashed client IP

	// Pub/sub channel for projected results after every tally refresh
	ChannelResults = "election:results:changed"
)

// TTL constants
const (
	TTLResults    = 5 * time.Second // Results are recomputed on every vote; keep short
	TTLStats      = 5 * time.Second
	TTLCandidates = 10 * time.Minute // Candidates change only through admin edits, which invalidate
)

// ErrNil is returned by Get for a missing key
var ErrNil = redis.Nil

// NewClient creates a new Redis client and verifies the connection
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value. A missing key returns ErrNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	c.logOp("redis_get", key, time.Since(start), ignoreNil(err))
	return val, err
}

// Set stores a value with TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	c.logOp("redis_set", key, time.Since(start), err)
	return err
}

// SetNX stores a value only when the key is absent and reports whether it did
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	c.logOp("redis_setnx", key, time.Since(start), err)
	return ok, err
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	c.log.Debug("redis_del",
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return err
}

// Publish sends a message on a pub/sub channel and returns the receiver count
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Publish(ctx, channel, message).Result()
	c.logOp("redis_publish", channel, time.Since(start), err)
	return n, err
}

// Incr increments a counter, creating it at 1
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Incr(ctx, key).Result()
	c.logOp("redis_incr", key, time.Since(start), err)
	return n, err
}

// Expire sets a key's time to live
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Expire(ctx, key, ttl).Err()
	c.logOp("redis_expire", key, time.Since(start), err)
	return err
}

// TTL returns the remaining time to live of a key
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.log.Info("redis_ping", zap.Duration("duration", time.Since(start)), zap.Error(err))
	} else {
		c.log.Debug("redis_ping", zap.Duration("duration", time.Since(start)))
	}
	return err
}

// logOp logs failures at info and successes at debug
func (c *Client) logOp(op, key string, dur time.Duration, err error) {
	if err != nil {
		c.log.Info(op,
			zap.String("key_prefix", prefixForLog(key)),
			zap.Duration("duration", dur),
			zap.Error(err))
		return
	}
	c.log.Debug(op,
		zap.String("key_prefix", prefixForLog(key)),
		zap.Duration("duration", dur))
}

func ignoreNil(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// prefixForLog keeps voter names out of logs
func prefixForLog(key string) string {
	if len(key) <= 32 {
		return key
	}
	return key[:32] + "…"
}
