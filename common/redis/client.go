package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"incapacity-claims/common/config"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 3 * time.Second
)

// NewRedisClient creates a client from cfg. It does not dial; blocking
// stream reads override the read timeout per call.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		MaxRetries:   1,
	})
}

// Available reports whether the server answers PING within timeout.
func Available(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

// Close closes the client.
func Close(client *redis.Client) error {
	return client.Close()
}
