package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/config"
)

// KeyFunc derives the limiter key from a request.
type KeyFunc func(c *fiber.Ctx) string

// UserOrIP keys authenticated requests by user id and the rest by client IP.
func UserOrIP(c *fiber.Ctx) string {
	if id, ok := c.Locals("userID").(string); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + c.IP()
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Limiter errors let the request through.
func Middleware(limiter Limiter, keyFn KeyFunc) fiber.Handler {
	if keyFn == nil {
		keyFn = UserOrIP
	}
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		allowed, retryAfter, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
			return c.Next()
		}
		if !allowed {
			log.Info().Str("key", key).Str("path", c.Path()).Msg("Rate limit exceeded")
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}
		return c.Next()
	}
}

// NewFromConfig returns a Redis-backed limiter when REDIS_URL is set and an
// in-process one otherwise. The returned func releases resources.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Limiter, func(), error) {
	if cfg.RedisURL == "" {
		mem := NewMemoryLimiter(cfg.TransformRPS, cfg.TransformBurst)
		janitorCtx, cancel := context.WithCancel(ctx)
		mem.StartJanitor(janitorCtx)
		log.Info().Float64("rps", cfg.TransformRPS).Int("burst", cfg.TransformBurst).Msg("Using in-memory rate limiter")
		return mem, cancel, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	window := time.Minute
	if cfg.TransformRPS > 0 {
		window = time.Duration(float64(cfg.TransformBurst) / cfg.TransformRPS * float64(time.Second))
	}
	log.Info().Int("limit", cfg.TransformBurst).Dur("window", window).Msg("Using Redis rate limiter")
	return NewRedisLimiter(rdb, cfg.TransformBurst, window), func() { _ = rdb.Close() }, nil
}
