package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/config"
	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/middleware"
	"github.com/congo-pay/wallet_ledger/internal/notification"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Store overrides the ledger backend otherwise chosen from DB.
	Store ledger.Store
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	store, err := ledgerStore(d)
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	// Inside Idempotency so a panic still releases the reserved key.
	app.Use(recover.New())

	// Health
	RegisterHealthRoutes(app, d)

	walletSvc := wallet.NewService(store, notification.NewLoggerNotifier(d.Logger))

	var limiter fiber.Handler
	if d.Cache != nil && d.Cfg.RateLimitPerMinute > 0 {
		limiter = middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	RegisterWalletRoutes(api, walletSvc, limiter)

	return nil
}

func ledgerStore(d Deps) (ledger.Store, error) {
	switch {
	case d.Store != nil:
		return d.Store, nil
	case d.DB != nil:
		return ledger.NewPostgresStore(d.DB, d.Cfg.StoreTimeout), nil
	case !d.Cfg.IsDev():
		return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	mem := ledger.NewInMemory()
	for _, id := range d.Cfg.DevWallets {
		if err := mem.CreateWallet(id, decimal.Zero); err != nil {
			return nil, fmt.Errorf("seed dev wallet %s: %w", id, err)
		}
	}
	d.Logger.Warn("using in-memory ledger", slog.Int("wallets", len(d.Cfg.DevWallets)))
	return mem, nil
}
