// Package cache owns the optional redis connection. Redis is an accelerator
// only: every caller works without it.
package cache

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"vendorsales-backend/internal/config"
	"vendorsales-backend/internal/logger"
)

// Connect returns nil clients when REDIS_ADDRESS is unset or the server does
// not answer a ping.
func Connect(cfg *config.Config) (*redis.Client, *redislock.Client) {
	log := logger.Get()
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDRESS not set, running without cache and batch locks")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.LogError(log, "cache", "Connect", "redis ping failed, running without redis", cfg.RedisAddr, err)
		_ = rdb.Close()
		return nil, nil
	}

	log.WithField("addr", cfg.RedisAddr).Info("redis connected")
	return rdb, redislock.New(rdb)
}
