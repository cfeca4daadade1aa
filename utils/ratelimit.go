package utils

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RateLimit counts requests per authenticated caller in a fixed redis window.
// It fails open: without redis, or with redis unreachable, requests pass.
func RateLimit(client *redis.Client, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if client == nil || limit <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%v", c.Locals("user"))
		count, err := client.Incr(c.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("Rate limit check failed")
			return c.Next()
		}

		if count == 1 {
			client.Expire(c.Context(), key, window)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded",
			})
		}

		return c.Next()
	}
}
