package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"estatehub/gateway/internal/config"
)

const (
	pingAttempts = 5
	pingInterval = time.Second
)

// Connect opens the Redis client shared by feed state, config updates, the
// stream hub and asynq. Redis often starts alongside the gateway, so the
// first ping is retried a few times.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		ClientName: "estatehub-gateway",
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
			return rdb, nil
		}
		logger.Warn("redis not ready", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(pingInterval):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
}

// Close releases the client.
func Close(rdb *redis.Client, logger *zap.Logger) error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	logger.Info("redis connection closed")
	return nil
}
