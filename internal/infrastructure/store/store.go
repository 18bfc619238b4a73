// Package store provides the key-value backends used for caller-side persistence.
package store

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// Backend types accepted by Open
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
)

// redisNamespace prefixes every key written to a shared Redis database
const redisNamespace = "foodlog:"

// Store is a closable key-value store
type Store interface {
	domain.KeyValueStore
	io.Closer
}

// Config selects and configures a backend
type Config struct {
	Type       string
	RedisURL   string
	SQLitePath string
}

// Open builds the backend named by cfg.Type
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case "", TypeMemory:
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	case TypeRedis:
		return NewRedisStore(ctx, cfg.RedisURL, redisNamespace, logger)
	case TypeSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
