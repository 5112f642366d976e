package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:v1:"

// RateLimit caps requests per client IP and route to maxPerMin in a fixed
// one-minute window. It is a no-op without Redis or with maxPerMin <= 0 and
// fails open on cache errors.
func RateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		window := time.Now().UTC().Truncate(time.Minute).Unix()
		key := rateLimitPrefix + c.Route().Path + ":" + c.IP() + ":" + strconv.FormatInt(window, 10)

		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit lookup failed", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			if err := cache.Expire(ctx, key, time.Minute).Err(); err != nil {
				logger.Warn("rate limit expiry failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
