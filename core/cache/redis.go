package cache

import (
	"context"
	"fmt"

	"orgsync-api/core/config"
	"orgsync-api/core/logger"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Cache:NewRedisClient:Ping:Error", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Cache:NewRedisClient:Connected", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}
