// Package redis maintains the shared cache connection. The geovisor keeps
// its hot read-mostly data here: fetched boundary topology documents and
// locality directory records, all under the "geovisor:" namespace. The
// cache is strictly optional; every consumer degrades to its origin when
// the connection is absent.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace = "geovisor"
	pingTimeout  = 5 * time.Second
)

// Key builds a namespaced cache key, e.g. Key("boundary", url).
func Key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}

// Client wraps the cache connection behind a ping-checked constructor.
type Client struct {
	client *redis.Client
}

// NewRedisClient connects and verifies the server answers before anything
// starts caching through it.
func NewRedisClient(host, port, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// GetClient returns the underlying connection for consumers that take a
// *redis.Client directly.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}
