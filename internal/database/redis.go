package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// InitRedis opens the Redis client used as the DNC fast-path set. Redis is
// optional: callers must tolerate a nil client and fall back to Postgres.
func InitRedis() *redis.Client {
	host := getEnv("REDIS_HOST", "")
	if host == "" {
		logrus.Info("REDIS_HOST not set, DNC cache disabled")
		return nil
	}
	port := getEnv("REDIS_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Warnf("Redis unavailable, DNC cache disabled: %v", err)
		return nil
	}

	logrus.Info("Redis connection established")
	return client
}
