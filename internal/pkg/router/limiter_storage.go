package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jariassh/dropcost-master/internal/pkg/cache"
	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

// NewLimiterStorage returns Redis storage for the rate limiter so limits hold
// across instances. It returns nil (in-memory limiter) when the cache is not
// set up.
func NewLimiterStorage() fiber.Storage {
	client := cache.GetClient()
	if client == nil {
		log.Warn("[Router] cache not initialized, rate limiter uses in-memory storage")
		return nil
	}
	return newRedisStorage(client, env.GetInt("LIMITER_REDIS_DB", 2))
}

// newRedisStorage reuses the cache connection settings on a separate
// database (cache uses DB 0).
func newRedisStorage(client *goredis.Client, database int) fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	opts := client.Options()
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	if opts.Password != "" {
		password = opts.Password
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
		Reset:    false,
	})
}
