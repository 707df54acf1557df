package database

import (
	"context"
	"fmt"

	"discord-wanderer/models"

	"go.uber.org/zap"
)

// CooldownStore persists guild id -> last successful post time (epoch milliseconds).
// Save replaces the whole set atomically: a crash mid-write never leaves a
// truncated state behind.
type CooldownStore interface {
	Load(ctx context.Context) (map[string]int64, error)
	Save(ctx context.Context, records map[string]int64) error
	Close() error
}

// OpenCooldownStore builds the backend selected in the configuration.
func OpenCooldownStore(ctx context.Context, cfg models.CooldownConfig, logger *zap.Logger) (CooldownStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	case "json":
		return NewJSONStore(cfg.Path)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown cooldown backend %q", cfg.Backend)
	}
}

// OpenCooldownStoreOrRetry is OpenCooldownStore for long-running processes: when
// the backend cannot be opened the error is logged and a RetryingStore is
// returned, so the caller starts with empty cooldowns instead of exiting.
func OpenCooldownStoreOrRetry(ctx context.Context, cfg models.CooldownConfig, logger *zap.Logger) CooldownStore {
	store, err := OpenCooldownStore(ctx, cfg, logger)
	if err == nil {
		return store
	}
	logger.Error("cooldown store unavailable, continuing with empty cooldowns and retrying on each save",
		zap.String("backend", cfg.Backend),
		zap.Error(err))
	return NewRetryingStore(func(ctx context.Context) (CooldownStore, error) {
		return OpenCooldownStore(ctx, cfg, logger)
	})
}
