package db

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"tombola-bot/internal/config"
)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Connecting to Redis")

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")
	return rdb, nil
}
