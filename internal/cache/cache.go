// Package cache provides the caching layer for marketcore.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented cache with TTLs and windowed counters. The
// counter methods back rate limiting; Get/Set/Delete back catalog reads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and sizes the cache backend.
type Config struct {
	Type          string // "memory" or "redis"
	MaxSize       int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates a cache based on configuration. Memory is the default for
// single-node deployments; redis is for running multiple API instances
// against a shared cache.
func New(cfg Config) (Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.MaxSize), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
