package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID echoes the caller's X-Request-ID or generates one, and stores it
// in Locals for the audit log.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)

		return c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by RequestID, if any.
func RequestIDFrom(c *fiber.Ctx) string {
	reqID, _ := c.Locals(requestIDHeader).(string)
	return reqID
}
