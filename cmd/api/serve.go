package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"filevault/docs"
	"filevault/internal/auth"
	"filevault/internal/database"
	"filevault/internal/database/migration"
	handlers "filevault/internal/http/handler"
	"filevault/internal/http/middleware"
	"filevault/internal/metrics"
	"filevault/internal/otel"
	"filevault/internal/repository"
	"filevault/internal/repository/memory"
	"filevault/internal/repository/postgres"
	"filevault/internal/service"
	"filevault/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var (
	skipMigrate bool
	inMemory    bool
)

// recordStore is what the server needs from the record store.
type recordStore interface {
	repository.Store
	handlers.Pinger
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		shutdownTracing, err := otel.Init(ctx, log)
		if err != nil {
			log.Warn("tracing_disabled", zap.Error(err))
		}
		if shutdownTracing != nil {
			defer func() { _ = shutdownTracing(context.Background()) }()
		}

		var records recordStore
		if inMemory {
			log.Warn("record_store_in_memory")
			records = memory.New()
		} else {
			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer db.Close()

			if !skipMigrate {
				if err := migration.Run(ctx, db, log); err != nil {
					return err
				}
			}
			records = postgres.NewStore(db)
		}

		objects, err := storage.New(cfg.Storage)
		if err != nil {
			return fmt.Errorf("initializing object store: %w", err)
		}

		fileMetrics, err := metrics.NewFiles(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer, "/healthz")
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}

		fileSvc := service.NewFileService(records, objects, log, fileMetrics, cfg.Storage.Timeout())
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
		defer limiter.Close()

		app := fiber.New(fiber.Config{
			ErrorHandler: handlers.ErrorHandler(),
			BodyLimit:    64 * 1024,
		})

		app.Use(otelfiber.Middleware())
		app.Use(middleware.RequestID())
		app.Use(middleware.Logger(log))
		app.Use(httpMetrics.Handler())

		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

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

		handlers.RegisterRoutes(app, records, fileSvc, middleware.Auth(tokens), limiter.Handler())

		errCh := make(chan error, 1)
		go func() {
			log.Info("server_starting",
				zap.String("addr", ":"+cfg.Port),
				zap.String("object_store", cfg.Storage.Backend),
			)
			errCh <- app.Listen(":" + cfg.Port)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
		}

		log.Info("server_shutting_down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("server_shutdown_failed", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations on startup")
	serveCmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep file records in process memory (development only)")
}
