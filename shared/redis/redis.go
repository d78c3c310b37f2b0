package redis

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client with the small surface the backend needs
type Client struct {
	client *redis.Client
}

// NewClient creates a redis client from REDIS_URL (host:port)
func NewClient() *Client {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password by default
		DB:       0,  // use default DB
	})
	return &Client{client: client}
}

// Set stores a value with an expiration
func (r *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a string value
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

// Del removes a key
func (r *Client) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Ping checks connectivity, used by the health checker
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// IsNotFound reports whether err means the key does not exist
func IsNotFound(err error) bool {
	return err == redis.Nil
}
