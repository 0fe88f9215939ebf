package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options locates the Redis server. Zero values fall back to the defaults
// below.
type Options struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

const (
	defaultPoolSize    = 10
	defaultDialTimeout = 5 * time.Second
	pingTimeout        = 2 * time.Second
)

// Client owns the go-redis connection pool shared by the view cache and the
// event publisher.
type Client struct {
	rdb *redis.Client
}

// NewClient dials Redis and fails unless the server answers PING.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     opts.PoolSize,
	})

	c := &Client{rdb: rdb}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}

// Redis exposes the underlying client for the cache and the publisher.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Ping reports whether the server answers within pingTimeout. It backs the
// readiness check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
