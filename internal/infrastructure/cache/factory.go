package cache

import (
	"context"
	"fmt"

	"github.com/erp/records/internal/domain/shared"
	"github.com/erp/records/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the store for the worker. Redis is preferred;
// when it is unreachable the in-memory store is used only if
// cfg.Idempotency.AllowInMemoryFallback is set.
func NewIdempotencyStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (shared.IdempotencyStore, error) {
	client, err := NewRedisClient(ctx, cfg.Redis)
	if err == nil {
		logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
		return NewRedisIdempotencyStore(client, DefaultKeyPrefix), nil
	}

	if !cfg.Idempotency.AllowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"redelivered jobs may run twice across worker processes",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(0), nil
}
