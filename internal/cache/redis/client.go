// Package redis implements the shared record medium on top of go-redis/v9.
// Records are plain string keys; the cross-process change signal travels
// over a Pub/Sub channel published in the same pipeline as every write.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the Pub/Sub channel carrying key-change signals.
const DefaultChangeChannel = "offertrack:changes"

// ClientConfig holds the connection and keyspace of the record medium.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool

	// KeyPrefix namespaces every record key, so several deployments can
	// share one database.
	KeyPrefix string
	// ChangeChannel defaults to DefaultChangeChannel.
	ChangeChannel string
}

// Client is a connected go-redis client bound to one record keyspace.
type Client struct {
	rdb     *redis.Client
	prefix  string
	channel string
}

// New connects, pings and returns the client. It fails when the server is
// unreachable.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	channel := cfg.ChangeChannel
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &Client{rdb: rdb, prefix: cfg.KeyPrefix, channel: channel}, nil
}

// Key returns the Redis key holding record key.
func (c *Client) Key(key string) string {
	return c.prefix + key
}

// Channel returns the change channel.
func (c *Client) Channel() string {
	return c.channel
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
