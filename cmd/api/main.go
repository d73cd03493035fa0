package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"familyvault/docs"
	"familyvault/internal/auth"
	"familyvault/internal/config"
	handlers "familyvault/internal/http/handler"
	"familyvault/internal/http/middleware"
	"familyvault/internal/logger"
	"familyvault/internal/otel"
	"familyvault/internal/otp"
	"familyvault/internal/service"
)

// @title                      Family Vault API
// @version                    1.0
// @description                Family document vault: Aadhaar-verified accounts, family links and permissioned document sharing.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("failed to build logger: %v", err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server_exit", zap.Error(err))
	}
}

// newApp returns the Fiber app with the error envelope and panic recovery
// installed ahead of every other middleware.
func newApp(cfg *config.AppConfig, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
		// Multipart framing on top of the largest accepted payload.
		BodyLimit: cfg.MaxUploadBytes + 1<<20,
	})
	app.Use(recover.New())
	return app
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	accountSvc := service.NewAccountService(service.AccountDeps{
		Accounts:  b.accounts,
		Tokens:    tokens,
		Codes:     otp.NewGenerator(cfg.OTP.TTL),
		Notifier:  newNotifier(cfg, log),
		Limiter:   limiter,
		Log:       log,
		ExposeOTP: cfg.OTP.Expose,
	})
	docSvc := service.NewDocumentService(service.DocumentDeps{
		Store:          b.objects,
		Documents:      b.documents,
		Accounts:       b.accounts,
		Log:            log,
		MaxUploadBytes: int64(cfg.MaxUploadBytes),
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := newApp(cfg, log)
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, handlers.Deps{
		Accounts:  accountSvc,
		Documents: docSvc,
		DB:        b.pinger(),
		Auth:      middleware.RequireAuth(tokens),
		Log:       log,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		log.Info("server_shutdown", zap.String("reason", "signal"))
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server_shutdown_failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server_starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.String("store_backend", cfg.StoreBackend),
	)
	return app.Listen(addr)
}
