package cache

import (
	"net"
	"strconv"

	"github.com/ManuelReschke/salvaplantao/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	fiberredis "github.com/gofiber/storage/redis"
)

// Database indexes on the shared Redis server.
const (
	DatabaseCache   = 0
	DatabaseLimiter = 2
)

// NewLimiterStorage returns a fiber.Storage on Redis so rate limits are shared
// by all replicas. It returns nil when Redis is unreachable.
func NewLimiterStorage() (storage fiber.Storage) {
	defer func() {
		if r := recover(); r != nil {
			fiberlog.Warnf("[Cache] Limiter storage unavailable, using in-memory counters: %v", r)
			storage = nil
		}
	}()

	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if c := GetClient(); c != nil {
		if h, p, err := net.SplitHostPort(c.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := c.Options().Password; p != "" {
			password = p
		}
	}

	return fiberredis.New(fiberredis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: DatabaseLimiter,
		Reset:    false,
	})
}
