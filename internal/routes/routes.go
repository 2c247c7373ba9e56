package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/banka/internal/auth"
	"github.com/congo-pay/banka/internal/banking"
	"github.com/congo-pay/banka/internal/clock"
	"github.com/congo-pay/banka/internal/config"
	"github.com/congo-pay/banka/internal/identity"
	"github.com/congo-pay/banka/internal/metrics"
	"github.com/congo-pay/banka/internal/middleware"
	"github.com/congo-pay/banka/internal/notification"
	"github.com/congo-pay/banka/internal/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Clock  *clock.Simulator
	Logger *slog.Logger
}

// Setup configures middlewares, builds the services and registers all
// application routes.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Clock == nil {
		d.Clock = clock.NewSimulator(clock.System{})
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(metrics.Middleware())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		st           store.Store
		identityRepo identity.Repository
	)
	if d.DB != nil {
		st = store.NewPostgres(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		st = store.NewMemory()
		identityRepo = identity.NewMemoryRepository()
	}

	identitySvc := identity.NewService(identityRepo, d.Clock)
	created, err := identitySvc.EnsureAdmin(ctx, identity.Credentials{Username: d.Cfg.AdminUsername, Password: d.Cfg.AdminPassword})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		d.Logger.Info("default admin created", slog.String("username", d.Cfg.AdminUsername))
	}

	bank := banking.NewService(banking.Options{
		Store:              st,
		Users:              identitySvc,
		Clock:              d.Clock,
		Products:           d.Cfg.Products,
		InterestPeriodDays: d.Cfg.InterestPeriodDays,
		Notifier:           notification.NewLoggerNotifier(d.Logger),
		Logger:             d.Logger,
	})
	authSvc := auth.NewService(d.Cfg, identityRepo)

	authHandler := auth.NewHandler(bank, authSvc)
	identityHandler := identity.NewHandler(identitySvc)
	bankHandler := banking.NewHandler(bank)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identityHandler)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(authSvc))
	RegisterLogoutRoute(protected, authHandler)
	RegisterUserRoutes(protected, bankHandler)
	RegisterAccountRoutes(protected, bankHandler, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterClockRoutes(protected, bankHandler)

	return nil
}
