package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"airq/internal/config"
	"airq/internal/database"
	"airq/internal/database/migration"
	handlers "airq/internal/http/handler"
	"airq/internal/http/middleware"
	"airq/internal/kaiterra"
	"airq/internal/otel"
	"airq/internal/poller"
	"airq/internal/repository/postgres"
	"airq/internal/service"
	"airq/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing first so later init calls are instrumented
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Upstream Kaiterra REST client, auth scheme chosen via KAITERRA_AUTH
	sensorAPI, err := kaiterra.New(cfg.Kaiterra)
	if err != nil {
		log.Fatalf("failed to initialize kaiterra client: %v", err)
	}

	// Initialize repositories and services
	deviceRepo := postgres.NewDevicePostgres(db)
	readingRepo := postgres.NewReadingPostgres(db)
	devSvc := service.NewDeviceService(sensorAPI, objStore, deviceRepo, readingRepo)

	// One registry for process, HTTP, and air quality metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	airMetrics, err := poller.NewMetrics(registry)
	if err != nil {
		log.Fatalf("failed to register air quality metrics: %v", err)
	}

	if cfg.Poller.Enabled {
		p := poller.New(devSvc, deviceRepo, airMetrics, cfg.Poller.Interval, loc)
		go p.Run(ctx)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(promMiddleware.Handler())
	app.Use(otelfiber.Middleware())

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, devSvc)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
