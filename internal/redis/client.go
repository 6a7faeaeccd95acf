// Package redis provides the shared seen-id set kept in a Redis set.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/log"
)

// Client manages the Redis set holding seen message ids
type Client struct {
	rdb *redis.Client
	key string
	log *log.Logger
}

// NewClient creates a new Redis client and verifies the server is reachable
func NewClient(cfg *config.RedisConfig, logger *log.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Using Redis set '%s' at %s for seen message ids", cfg.Key, cfg.Address)
	return &Client{rdb: rdb, key: cfg.Key, log: logger}, nil
}

// Add inserts id and reports whether it was already a member.
// SADD is atomic, so concurrent first sightings yield exactly one false.
func (c *Client) Add(ctx context.Context, id string) (bool, error) {
	added, err := c.rdb.SAdd(ctx, c.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("sadd failed for id %s: %w", id, err)
	}
	return added == 0, nil
}

// IsMember reports whether id is in the set
func (c *Client) IsMember(ctx context.Context, id string) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, c.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("sismember failed for id %s: %w", id, err)
	}
	return ok, nil
}

// Count returns the set cardinality
func (c *Client) Count(ctx context.Context) (int64, error) {
	n, err := c.rdb.SCard(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("scard failed for key %s: %w", c.key, err)
	}
	return n, nil
}

// Clear removes the whole set
func (c *Client) Clear(ctx context.Context) error {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("del failed for key %s: %w", c.key, err)
	}
	return nil
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
