package apierror

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_ledger/internal/middleware"
)

// MethodLister reports the HTTP methods registered for a request path.
type MethodLister func(app *fiber.App, path string) []string

// Handler returns the Fiber error handler that renders every failure through
// the taxonomy. Internal failures are logged with full context and rendered
// without detail.
func Handler(logger *slog.Logger, methods MethodLister) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		f := Classify(err)
		switch v := f.(type) {
		case MethodNotAllowed:
			if v.Method == "" {
				v.Method = c.Method()
			}
			if v.Supported == nil && methods != nil {
				v.Supported = methods(c.App(), c.Path())
			}
			f = v
		case Internal:
			if logger != nil {
				logger.ErrorContext(c.UserContext(), "unhandled error",
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.String("request_id", middleware.RequestIDFrom(c)),
					slog.Any("error", v.Err),
				)
			}
		}

		status, body := Render(f, c.Path(), time.Now())
		return c.Status(status).JSON(body)
	}
}
