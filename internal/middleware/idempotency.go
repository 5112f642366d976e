package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "idempotency:v1:"
	inProgressMarker        = "__in_progress__"
	cacheOpTimeout          = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the first successful response of an unsafe request
// carrying an Idempotency-Key header. Requests without the header pass
// through untouched. Failed requests release their key so the client may
// retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()

		cacheKey := idempotencyPrefix + c.Path() + ":" + key

		cached, err := cache.Get(ctx, cacheKey).Result()
		if err == nil {
			if cached == inProgressMarker {
				return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
			}

			var stored storedResponse
			if err := json.Unmarshal([]byte(cached), &stored); err != nil {
				logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
				return fiber.NewError(fiber.StatusConflict, "duplicate request")
			}

			for header, value := range stored.Headers {
				if strings.EqualFold(header, fiber.HeaderContentLength) || strings.EqualFold(header, requestIDHeader) {
					continue
				}
				c.Set(header, value)
			}
			c.Set(idempotencyReplayHeader, "true")
			return c.Status(stored.Status).SendString(stored.Body)
		}

		if !errors.Is(err, redis.Nil) {
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		release := func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
			defer cancel()
			cache.Del(cleanupCtx, cacheKey)
		}

		if err := c.Next(); err != nil {
			release()
			return err
		}

		stored := storedResponse{
			Status:  c.Response().StatusCode(),
			Body:    string(c.Response().Body()),
			Headers: map[string]string{},
		}

		c.Response().Header.VisitAll(func(k, v []byte) {
			stored.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			release()
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer persistCancel()

		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			// The operation already committed; keep its response and drop the key.
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			release()
		}

		return nil
	}
}
