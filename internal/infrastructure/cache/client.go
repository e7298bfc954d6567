package cache

import (
	"github.com/go-otp-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client for the ephemeral verification store.
// The connection is opened once per process and shared by all requests;
// go-redis pools and serializes access internally.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
